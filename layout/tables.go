package layout

import (
	"slices"

	"github.com/msantos/unpacker/buildenv"
	"github.com/msantos/unpacker/walker"
)

func fixed(l walker.Layout) table {
	return func() (walker.Layout, error) {
		c := l
		c.Fields = slices.Clone(l.Fields)
		return c, nil
	}
}

var linkStats = []string{
	"rx_packets", "tx_packets", "rx_bytes", "tx_bytes",
	"rx_errors", "tx_errors", "rx_dropped", "tx_dropped",
	"multicast", "collisions",
	"rx_length_errors", "rx_over_errors", "rx_crc_errors",
	"rx_frame_errors", "rx_fifo_errors", "rx_missed_errors",
	"tx_aborted_errors", "tx_carrier_errors", "tx_fifo_errors",
	"tx_heartbeat_errors", "tx_window_errors",
	"rx_compressed", "tx_compressed", "rx_nohandler",
}

func counters(name string, width int, names []string) walker.Layout {
	l := walker.Layout{Name: name, Size: width * len(names)}
	for i, n := range names {
		l.Fields = append(l.Fields, walker.Field{Offset: i * width, Size: width, Name: n})
	}
	return l
}

// SiginfoChild is the layout of the SIGCHLD member of siginfo_t.
func SiginfoChild() walker.Layout {
	if buildenv.PointerSize == 4 {
		return walker.Layout{
			Name:        "siginfo_sigchld",
			Size:        128,
			StripPrefix: "si_",
			Fields: []walker.Field{
				{Offset: 0, Size: 4, Kind: walker.Signed, Name: "si_signo"},
				{Offset: 4, Size: 4, Kind: walker.Signed, Name: "si_errno"},
				{Offset: 8, Size: 4, Kind: walker.Signed, Name: "si_code"},
				{Offset: 12, Size: 4, Kind: walker.Signed, Name: "si_pid"},
				{Offset: 16, Size: 4, Name: "si_uid"},
				{Offset: 20, Size: 4, Kind: walker.Signed, Name: "si_status"},
				{Offset: 24, Size: 4, Kind: walker.Signed, Name: "si_utime", Note: "/* clock ticks */"},
				{Offset: 28, Size: 4, Kind: walker.Signed, Name: "si_stime", Note: "/* clock ticks */"},
			},
		}
	}

	return walker.Layout{
		Name:        "siginfo_sigchld",
		Size:        128,
		StripPrefix: "si_",
		Fields: []walker.Field{
			{Offset: 0, Size: 4, Kind: walker.Signed, Name: "si_signo"},
			{Offset: 4, Size: 4, Kind: walker.Signed, Name: "si_errno"},
			{Offset: 8, Size: 4, Kind: walker.Signed, Name: "si_code"},
			{Offset: 16, Size: 4, Kind: walker.Signed, Name: "si_pid"},
			{Offset: 20, Size: 4, Name: "si_uid"},
			{Offset: 24, Size: 4, Kind: walker.Signed, Name: "si_status"},
			{Offset: 32, Size: 8, Kind: walker.Signed, Name: "si_utime", Note: "/* clock ticks */"},
			{Offset: 40, Size: 8, Kind: walker.Signed, Name: "si_stime", Note: "/* clock ticks */"},
		},
	}
}

// Dirent64 is the layout of a getdents64 record. Size covers the fixed
// header; the name runs to the end of the record.
func Dirent64() walker.Layout {
	return walker.Layout{
		Name:        "linux_dirent64",
		Size:        19,
		StripPrefix: "d_",
		Fields: []walker.Field{
			{Offset: 0, Size: 8, Name: "d_ino"},
			{Offset: 8, Size: 8, Kind: walker.Signed, Name: "d_off", Note: "/* filesystem cookie */"},
			{Offset: 16, Size: 2, Name: "d_reclen"},
			{Offset: 18, Size: 1, Name: "d_type"},
			{Offset: 19, ElemSize: 1, Kind: walker.Blob, Flexible: true, Name: "d_name"},
		},
	}
}

var tables = map[string]table{
	"siginfo_sigchld": func() (walker.Layout, error) { return SiginfoChild(), nil },
	"linux_dirent64":  func() (walker.Layout, error) { return Dirent64(), nil },

	"iphdr": fixed(walker.Layout{
		Name: "iphdr",
		Size: 20,
		Fields: []walker.Field{
			{Offset: 0, Size: 1, Name: "ihl", Note: "/* ihl:4, version:4; version = ihl>>4, ihl &= 15 */"},
			{Offset: 1, Size: 1, Name: "tos"},
			{Offset: 2, Size: 2, Name: "tot_len"},
			{Offset: 4, Size: 2, Name: "id"},
			{Offset: 6, Size: 2, Name: "frag_off"},
			{Offset: 8, Size: 1, Name: "ttl"},
			{Offset: 9, Size: 1, Name: "protocol"},
			{Offset: 10, Size: 2, Name: "check"},
			{Offset: 12, Size: 4, Name: "saddr"},
			{Offset: 16, Size: 4, Name: "daddr"},
		},
	}),

	"ip_auth_hdr": fixed(walker.Layout{
		Name: "ip_auth_hdr",
		Size: 12,
		Fields: []walker.Field{
			{Offset: 0, Size: 1, Name: "nexthdr"},
			{Offset: 1, Size: 1, Name: "hdrlen", Note: "/* 32 bit units */"},
			{Offset: 4, Size: 4, Name: "spi"},
			{Offset: 8, Size: 4, Name: "seq_no"},
			{Offset: 12, ElemSize: 1, Kind: walker.Blob, Flexible: true, Name: "auth_data"},
		},
	}),

	"ip_esp_hdr": fixed(walker.Layout{
		Name: "ip_esp_hdr",
		Size: 8,
		Fields: []walker.Field{
			{Offset: 0, Size: 4, Name: "spi"},
			{Offset: 4, Size: 4, Name: "seq_no"},
			{Offset: 8, ElemSize: 1, Kind: walker.Blob, Flexible: true, Name: "enc_data"},
		},
	}),

	"ip_comp_hdr": fixed(walker.Layout{
		Name: "ip_comp_hdr",
		Size: 4,
		Fields: []walker.Field{
			{Offset: 0, Size: 1, Name: "nexthdr"},
			{Offset: 1, Size: 1, Name: "flags"},
			{Offset: 2, Size: 2, Name: "cpi"},
		},
	}),

	"link_info_request": fixed(walker.Layout{
		Name: "link_info_request",
		Size: 16 + 16 + 1024,
		Fields: []walker.Field{
			{Offset: 0, Size: 16, Kind: walker.Blob, Name: "hdr", Note: "/* nlmsghdr */"},
			{Offset: 16, Size: 16, Kind: walker.Blob, Name: "ifm", Note: "/* ifinfomsg */"},
			{Offset: 32, Size: 1024, Kind: walker.Blob, Name: "buf", Note: "array"},
		},
	}),

	"ifla_cacheinfo": fixed(counters("ifla_cacheinfo", 4,
		[]string{"max_reasm_len", "tstamp", "reachable_time", "retrans_time"})),

	"rtnl_link_stats":   fixed(counters("rtnl_link_stats", 4, linkStats)),
	"rtnl_link_stats64": fixed(counters("rtnl_link_stats64", 8, linkStats)),
}
