// Package defs holds kernel-wide constants: error numbers and limits.
package defs

// Errno is a syscall error number. Syscalls return it negated: zero means
// success and a negative value names the failure.
type Errno int

const (
	EPERM  Errno = 1
	ENOENT Errno = 2
	ESRCH  Errno = 3
	EINTR  Errno = 4
	ECHILD Errno = 10
	EAGAIN Errno = 11
	ENOMEM Errno = 12
	EFAULT Errno = 14
	EBUSY  Errno = 16
	EEXIST Errno = 17
	EINVAL Errno = 22
	ENOSYS Errno = 38
)

// Ok reports whether e denotes success.
func (e Errno) Ok() bool { return e == 0 }

func (e Errno) abs() Errno {
	if e < 0 {
		return -e
	}
	return e
}

func (e Errno) String() string {
	switch e.abs() {
	case 0:
		return "ok"
	case EPERM:
		return "operation not permitted"
	case ENOENT:
		return "no such program"
	case ESRCH:
		return "no such thread"
	case EINTR:
		return "interrupted"
	case ECHILD:
		return "no child processes"
	case EAGAIN:
		return "try again"
	case ENOMEM:
		return "out of memory"
	case EFAULT:
		return "bad address"
	case EBUSY:
		return "busy"
	case EEXIST:
		return "exists"
	case EINVAL:
		return "invalid argument"
	case ENOSYS:
		return "not implemented"
	default:
		return "unknown"
	}
}

func (e Errno) Error() string { return e.String() }

// Ret returns e in syscall return form.
func (e Errno) Ret() int { return -int(e.abs()) }

// Code extracts the error number from a syscall return value, or 0 when the
// call succeeded.
func Code(ret int) Errno {
	if ret < 0 {
		return Errno(-ret)
	}
	return 0
}
