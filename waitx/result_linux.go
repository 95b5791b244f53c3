package waitx

import (
	"fmt"
	"io"
	"sync"
	"syscall"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/msantos/unpacker/buildenv"
	"github.com/msantos/unpacker/layout"
	"github.com/msantos/unpacker/process"
	"github.com/msantos/unpacker/walker"
)

// UserHZ is the unit of the siginfo CPU times.
const UserHZ = 100

// Result is everything observed during one exercise.
type Result struct {
	Parent  int
	Child   int
	Mode    Mode
	Options uint32

	Called bool  // the wait call was made
	Ret    int   // value returned by the call
	Err    error // errno of a failed call
	HasPid bool  // Ret is a process ID

	Status  *Status
	Siginfo *Siginfo
	Rusage  *unix.Rusage

	Before    *process.Stat
	BeforeErr error
	After     *process.Stat
	AfterErr  error

	Elapsed time.Duration
	Reaped  []int
}

// Status is a decoded wait status.
type Status struct {
	Raw        uint32
	Exited     bool
	ExitStatus int
	Signaled   bool
	Signal     syscall.Signal
	CoreDump   bool
	Stopped    bool
	StopSignal syscall.Signal
	Continued  bool
}

func newStatus(ws unix.WaitStatus) *Status {
	s := &Status{
		Raw:       uint32(ws),
		Exited:    ws.Exited(),
		Signaled:  ws.Signaled(),
		CoreDump:  ws.CoreDump(),
		Stopped:   ws.Stopped(),
		Continued: ws.Continued(),
	}
	if s.Exited {
		s.ExitStatus = ws.ExitStatus()
	}
	if s.Signaled {
		s.Signal = ws.Signal()
	}
	if s.Stopped {
		s.StopSignal = ws.StopSignal()
	}
	return s
}

// SIGCHLD si_code values from <asm-generic/siginfo.h>.
const (
	CLDExited = iota + 1
	CLDKilled
	CLDDumped
	CLDTrapped
	CLDStopped
	CLDContinued
)

var cldNames = [...]string{
	CLDExited:    "CLD_EXITED",
	CLDKilled:    "CLD_KILLED",
	CLDDumped:    "CLD_DUMPED",
	CLDTrapped:   "CLD_TRAPPED",
	CLDStopped:   "CLD_STOPPED",
	CLDContinued: "CLD_CONTINUED",
}

// CodeName describes a SIGCHLD si_code.
func CodeName(code int32) string {
	if code > 0 && int(code) < len(cldNames) {
		return cldNames[code]
	}
	return fmt.Sprintf("code %d", code)
}

// Siginfo is the SIGCHLD member of a siginfo_t.
type Siginfo struct {
	Signo  int32
	Errno  int32
	Code   int32
	Pid    int32
	Uid    uint32
	Status int32
	Utime  int64 // clock ticks
	Stime  int64 // clock ticks

	Raw []byte
}

// UserTime is the user CPU time of the child.
func (s *Siginfo) UserTime() time.Duration {
	return ticks(s.Utime)
}

// SystemTime is the system CPU time of the child.
func (s *Siginfo) SystemTime() time.Duration {
	return ticks(s.Stime)
}

func ticks(n int64) time.Duration {
	return time.Duration(n) * time.Second / UserHZ
}

var siginfoReport = sync.OnceValues(func() (*walker.Report, error) {
	return walker.Walk(layout.SiginfoChild(), walker.WithOutput(io.Discard))
})

func decodeSiginfo(info *unix.Siginfo) (*Siginfo, error) {
	raw := unsafe.Slice((*byte)(unsafe.Pointer(info)), unsafe.Sizeof(*info))
	si := &Siginfo{Raw: append([]byte(nil), raw...)}

	r, err := siginfoReport()
	if err != nil {
		return si, err
	}

	values, err := r.Decode(si.Raw, buildenv.Order())
	if err != nil {
		return si, err
	}
	v := walker.ByName(values)

	si.Signo = int32(v["signo"].Int())
	si.Errno = int32(v["errno"].Int())
	si.Code = int32(v["code"].Int())
	si.Pid = int32(v["pid"].Int())
	si.Uid = uint32(v["uid"].Uint())
	si.Status = int32(v["status"].Int())
	si.Utime = v["utime"].Int()
	si.Stime = v["stime"].Int()
	return si, nil
}

func errnoText(err error) string {
	if err == nil {
		return "Success"
	}
	return err.Error()
}

// Print writes the report in the order the values were collected.
func (r *Result) Print(w io.Writer) {
	fmt.Fprintf(w, "parent process is %d\n", r.Parent)
	fmt.Fprintf(w, "child process is %d\n", r.Child)
	fmt.Fprintf(w, "wait mode %s, options %s (%#x)\n", r.Mode, FormatOptions(r.Options), r.Options)

	if r.Before != nil {
		fmt.Fprintf(w, "PROC BEFORE: %s\n", r.Before)
	} else if r.BeforeErr != nil {
		fmt.Fprintf(w, "PROC BEFORE: %v\n", r.BeforeErr)
	}

	if !r.Called {
		fmt.Fprintln(w, "Ignoring subprocess and just exiting")
	} else {
		raw := uint32(0)
		if r.Status != nil {
			raw = r.Status.Raw
		}
		fmt.Fprintf(w, "%s returned %d, status %04x; %s\n", r.Mode, r.Ret, raw, errnoText(r.Err))
	}

	if r.Err != nil {
		fmt.Fprintf(w, "ERROR: %s\n", errnoText(r.Err))
	}
	if r.HasPid {
		fmt.Fprintf(w, "RETURNED PID: %d\n", r.Ret)
	}

	if s := r.Status; s != nil {
		fmt.Fprintf(w, "EXIT STATUS: %04x\n", s.Raw)
		if s.Exited {
			fmt.Fprintf(w, "\texited with status %#x\n", s.ExitStatus)
		}
		if s.Signaled {
			fmt.Fprintf(w, "\tkilled by signal %#x (%s)\n", int(s.Signal), s.Signal)
		}
		if s.CoreDump {
			fmt.Fprintln(w, "\tcore dumped")
		}
		if s.Stopped {
			fmt.Fprintf(w, "\tstopped by signal %#x (%s)\n", int(s.StopSignal), s.StopSignal)
		}
		if s.Continued {
			fmt.Fprintln(w, "\tcontinued")
		}
	}

	if si := r.Siginfo; si != nil {
		fmt.Fprintln(w, "SIGINFO:")
		fmt.Fprintf(w, "\tsigno=%d\n", si.Signo)
		fmt.Fprintf(w, "\terrno=%d\n", si.Errno)
		fmt.Fprintf(w, "\tcode=%d (%s)\n", si.Code, CodeName(si.Code))
		fmt.Fprintf(w, "\tpid=%d\n", si.Pid)
		fmt.Fprintf(w, "\tuid=%d\n", si.Uid)
		fmt.Fprintf(w, "\tstatus=0x%04x\n", si.Status)
		fmt.Fprintf(w, "\tstime=%.6f s\n", si.SystemTime().Seconds())
		fmt.Fprintf(w, "\tutime=%.6f s\n", si.UserTime().Seconds())
	}

	if ru := r.Rusage; ru != nil {
		fmt.Fprintln(w, "RUSAGE:")
		fmt.Fprintf(w, "\tutime=%.6f\n", timeval(ru.Utime))
		fmt.Fprintf(w, "\tstime=%.6f\n", timeval(ru.Stime))
		fmt.Fprintf(w, "\tmaxrss=%d KiB\n", ru.Maxrss)
		fmt.Fprintf(w, "\tixrss=%d KiB  \tidrss=%d KiB  \tisrss=%d KiB\n", ru.Ixrss, ru.Idrss, ru.Isrss)
		fmt.Fprintf(w, "\tminflt=%d  \tmajflt=%d\n", ru.Minflt, ru.Majflt)
		fmt.Fprintf(w, "\tnswap=%d\n", ru.Nswap)
		fmt.Fprintf(w, "\tinblock=%d  \toublock=%d\n", ru.Inblock, ru.Oublock)
		fmt.Fprintf(w, "\tmsgsnd=%d  \tmsgrcv=%d\n", ru.Msgsnd, ru.Msgrcv)
		fmt.Fprintf(w, "\tnsignals=%d\n", ru.Nsignals)
		fmt.Fprintf(w, "\tnvcsw=%d  \tnivcsw=%d\n", ru.Nvcsw, ru.Nivcsw)
	}

	if r.After != nil {
		fmt.Fprintf(w, "PROC AFTER: %s\n", r.After)
	} else if r.AfterErr != nil {
		fmt.Fprintf(w, "PROC AFTER: %v\n", r.AfterErr)
	}

	if len(r.Reaped) > 0 {
		fmt.Fprintf(w, "REAPED: %v\n", r.Reaped)
	}
}

func timeval(tv unix.Timeval) float64 {
	return float64(tv.Sec) + float64(tv.Usec)*0.000001
}
