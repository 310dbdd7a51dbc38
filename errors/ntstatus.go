package errors

// NTStatus is a 32-bit Windows kernel status code; 0 is success.
type NTStatus uint32

const (
	StatusSuccess             NTStatus = 0x00000000
	StatusAccessDenied        NTStatus = 0xC0000022
	StatusLockNotGranted      NTStatus = 0xC0000055
	StatusNotSupported        NTStatus = 0xC00000BB
	StatusObjectNameCollision NTStatus = 0xC0000035
	StatusDirectoryNotEmpty   NTStatus = 0xC0000101
	StatusNotLocked           NTStatus = 0xC000002A
	StatusObjectNameNotFound  NTStatus = 0xC0000034
	StatusNotImplemented      NTStatus = 0xC0000002
	StatusObjectPathNotFound  NTStatus = 0xC000003A
	StatusBufferOverflow      NTStatus = 0x80000005

	// ErrorAlreadyExists is ERROR_ALREADY_EXISTS (183), a Win32 error code
	// rather than an NTSTATUS value. The original returns it verbatim from
	// ZwCreateFile's FILE_CREATE-on-existing-file branch instead of
	// translating it into STATUS_OBJECT_NAME_COLLISION; kept as-is here
	// for the same reason spec.md §9's Open Question 1 is kept verbatim.
	ErrorAlreadyExists NTStatus = 183
)

// ErrnoToNTStatus implements spec.md §4.D stage 2. Any errno outside the
// four named cases passes through as its raw numeric value, exactly as the
// original's `_errno2syserrcode` does ("return eno" for anything else).
func ErrnoToNTStatus(eno Errno) NTStatus {
	switch eno {
	case EEXIST:
		return StatusObjectNameCollision
	case ENOTEMPTY:
		return StatusDirectoryNotEmpty
	case ENOSYS:
		return StatusNotSupported
	case EACCES:
		return StatusAccessDenied
	default:
		return NTStatus(eno)
	}
}

// KindToNTStatus composes both translation stages (spec.md §8 property 7:
// "every VFS error kind maps to exactly one NT status").
func KindToNTStatus(kind Kind) NTStatus {
	return ErrnoToNTStatus(ToErrno(kind))
}
