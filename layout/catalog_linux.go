//go:build linux

package layout

import (
	"golang.org/x/sys/unix"

	"github.com/msantos/unpacker/walker"
)

func reflected(v any, opts ...Option) table {
	return func() (walker.Layout, error) {
		return FromStruct(v, opts...)
	}
}

func init() {
	register("stat", reflected(unix.Stat_t{}, WithName("stat")))
	register("statfs", reflected(unix.Statfs_t{}, WithName("statfs"),
		WithNote("fsid.val", "/* fsid_t */")))
	register("statx", reflected(unix.Statx_t{}, WithName("statx")))
	register("timex", reflected(unix.Timex{}, WithName("timex")))
	register("msghdr", reflected(unix.Msghdr{}, WithName("msghdr")))
	register("iovec", reflected(unix.Iovec{}, WithName("iovec")))
	register("cmsghdr", reflected(unix.Cmsghdr{}, WithName("cmsghdr")))
	register("nlmsghdr", reflected(unix.NlMsghdr{}, WithName("nlmsghdr")))
	register("ifinfomsg", reflected(unix.IfInfomsg{}, WithName("ifinfomsg")))
	register("ifaddrmsg", reflected(unix.IfAddrmsg{}, WithName("ifaddrmsg")))
	register("rtattr", reflected(unix.RtAttr{}, WithName("rtattr")))
	register("rusage", reflected(unix.Rusage{}, WithName("rusage")))
	register("siginfo", reflected(unix.Siginfo{}, WithName("siginfo")))
	register("dirent", reflected(unix.Dirent{}, WithName("dirent")))
	register("timespec", reflected(unix.Timespec{}, WithName("timespec")))
	register("timeval", reflected(unix.Timeval{}, WithName("timeval")))
	register("utsname", reflected(unix.Utsname{}, WithName("utsname")))
	register("sysinfo", reflected(unix.Sysinfo_t{}, WithName("sysinfo")))
	register("ucred", reflected(unix.Ucred{}, WithName("ucred")))
	register("epoll_event", reflected(unix.EpollEvent{}, WithName("epoll_event")))
	register("flock", reflected(unix.Flock_t{}, WithName("flock")))
	register("winsize", reflected(unix.Winsize{}, WithName("winsize")))
	register("sockaddr_in", reflected(unix.RawSockaddrInet4{}, WithName("sockaddr_in")))
	register("sockaddr_in6", reflected(unix.RawSockaddrInet6{}, WithName("sockaddr_in6")))
	register("tcp_info", reflected(unix.TCPInfo{}, WithName("tcp_info")))

	for name, fn := range tables {
		register(name, fn)
	}
}
