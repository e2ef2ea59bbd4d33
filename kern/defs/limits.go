package defs

const (
	// MaxCores bounds the per-core state table. Core 0 is the manager.
	MaxCores = 16

	// PageSize is the address-space page granule.
	PageSize = 4096

	// StackSize is the fixed size of every thread's kernel stack region.
	StackSize = 2 * PageSize

	// TCBSize is the slice of the stack's high end that holds the control block.
	TCBSize = 256

	// NumRegions is the number of address-space sub-locks per process.
	NumRegions = 16

	// RegionSpan is the number of bytes of user address space one sub-lock covers.
	RegionSpan = 1 << 28

	// AddressSpaceSize is the size of a process's address space.
	AddressSpaceSize = NumRegions * RegionSpan

	// ExceptionStatus is the exit status of a thread killed by an unhandled fault.
	ExceptionStatus = -2

	// MinStatus and MaxStatus bound an exit status; it travels as an i32.
	// Vanish and SetStatus saturate values outside the range.
	MinStatus = -1 << 31
	MaxStatus = 1<<31 - 1

	// AnyThread asks the scheduler for whichever thread is next.
	AnyThread = -1
)

const (
	// UserBase is where a program image is mapped.
	UserBase = 0x0100_0000

	// UserStackTop is the first address above a process's user stack.
	UserStackTop = 0xC000_0000

	// UserStackPages is the size of the initial user stack.
	UserStackPages = 4
)
