package dokanfs

////////////////////////////////////////////////////////////////////////////////
// POSIX mode bits. Info.Mode is an os.FileMode, whose bit layout differs
// from these values; nothing in this module converts between the two.

const (
	S_IXOTH = 1 << iota
	S_IWOTH = 1 << iota
	S_IROTH = 1 << iota
	S_IXGRP = 1 << iota
	S_IWGRP = 1 << iota
	S_IRGRP = 1 << iota
	S_IXUSR = 1 << iota
	S_IWUSR = 1 << iota
	S_IRUSR = 1 << iota
	S_ISVTX = 1 << iota
	S_ISGID = 1 << iota
	S_ISUID = 1 << iota
	S_IFIFO = 1 << iota
	S_IFCHR = 1 << iota
	S_IFDIR = 1 << iota
	S_IFREG = 1 << iota
)

const S_IEXEC = S_IXUSR
const S_IWRITE = S_IWUSR
const S_IREAD = S_IRUSR

const S_IFLNK = 0xa000
const S_IFMT = 0xf000

const S_IRWXO = S_IXOTH | S_IWOTH | S_IROTH
const S_IRWXG = S_IXGRP | S_IWGRP | S_IRGRP
const S_IRWXU = S_IXUSR | S_IWUSR | S_IRUSR

////////////////////////////////////////////////////////////////////////////////
// Mount option flags (spec.md §3's "flags: bitset"). Each bit corresponds to
// one of DOKAN_OPTION_* in the host driver binding.

// MountFlags is the bitset of behaviors requested of the host driver at
// mount time.
type MountFlags uint32

const (
	FlagDebug = MountFlags(1 << iota)
	FlagStderr
	FlagAltStream
	FlagWriteProtect
	FlagNetworkDrive
	FlagRemovableDrive
	FlagMountManager
	FlagCurrentSessionOnly
	FlagUserModeLocks
)

func (f MountFlags) Has(bit MountFlags) bool { return f&bit != 0 }

////////////////////////////////////////////////////////////////////////////////
// NT create disposition and create-option bits (spec.md §4.G).

// CreateDisposition is the NT CreateDisposition value passed to
// ZwCreateFile.
type CreateDisposition int

const (
	FileSupersede CreateDisposition = iota
	FileOpen
	FileCreate
	FileOpenIf
	FileOverwrite
	FileOverwriteIf
)

// CreateOptions is a bitset of the NT CreateOptions passed to ZwCreateFile.
type CreateOptions uint32

const (
	FileDirectoryFile    CreateOptions = 0x00000001
	FileNonDirectoryFile CreateOptions = 0x00000040
	FileDeleteOnClose    CreateOptions = 0x00001000
)

func (o CreateOptions) Has(bit CreateOptions) bool { return o&bit != 0 }

// DesiredAccess is a bitset of the NT DesiredAccess mask passed to
// ZwCreateFile.
type DesiredAccess uint32

const (
	AccessReadData   DesiredAccess = 0x1
	AccessWriteData  DesiredAccess = 0x2
	AccessAppendData DesiredAccess = 0x4
	AccessExecute    DesiredAccess = 0x20
)

func (a DesiredAccess) Has(bit DesiredAccess) bool { return a&bit != 0 }

// CreateAction mirrors the driver's FILE_SUPERSEDED/FILE_OPENED/...
// return values, surfaced through dispatch.State.ZwCreateFile.
type CreateAction int

const (
	ActionSuperseded   CreateAction = 0
	ActionOpened       CreateAction = 1
	ActionCreated      CreateAction = 2
	ActionOverwritten  CreateAction = 3
	ActionExists       CreateAction = 4
	ActionDoesNotExist CreateAction = 5
)
