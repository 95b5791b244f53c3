package process

var ParseStat = parseStat
