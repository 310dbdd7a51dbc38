// Package mount implements spec.md §4.H: driving a dokanhost.Binding through
// its foreground/background mount lifecycle, wiring its callbacks to a
// dispatch.State, and tearing both down cleanly on unmount.
//
// Grounded on the original's mount()/unmount()/MountProcess/check_ready/
// check_alive (_examples/original_source/dokan/__init__.py). The Python
// original's background path spawns a whole new interpreter process because
// CPython has no fork() on Windows and FS objects must be pickled across
// it; Go has no such restriction; Controller's "background" mode instead
// just runs Binding.Main on its own goroutine.
package mount

import (
	"fmt"
	"os"
	"time"

	"github.com/mountkit/dokanfs"
	"github.com/mountkit/dokanfs/dispatch"
	"github.com/mountkit/dokanfs/dokanhost"
	"github.com/mountkit/dokanfs/timeoutwatch"
	"github.com/mountkit/dokanfs/vfspath"
)

// readyPollInterval and readyPollAttempts implement check_ready's polling
// loop: up to 100 attempts, 50ms apart.
const (
	readyPollInterval = 50 * time.Millisecond
	readyPollAttempts = 100
)

// Config collects the knobs mount() accepted as **kwds: the mount point,
// the driver Options to pass through (SectorSize/Timeout/etc default via
// Options.WithDefaults), volume naming for GetVolumeInformation, and an
// optional ReadyCallback/UnmountCallback pair.
type Config struct {
	MountPoint     string
	Options        dokanhost.Options
	VolumeName     string
	FileSystemName string

	// ReadyCallback, if set, runs once the mount point is confirmed to
	// exist (check_ready's ready_callback). For a foreground Mount, a nil
	// ReadyCallback skips the readiness poll; a background Mount always
	// polls before returning.
	ReadyCallback func()
	// UnmountCallback runs after a successful Unmount, mirroring the
	// original's unmount_callback (used there to fs.close() the backend).
	UnmountCallback func()

	NameMatcher        func(pattern, name string) bool
	SecurityDescriptor func(path string) ([]byte, error)
	Logger             dispatch.Logger
}

// Controller owns one mounted filesystem: the dispatcher state behind it,
// the timeout watcher protecting its callbacks, and the driver binding used
// to start and stop it.
type Controller struct {
	binding dokanhost.Binding
	state   *dispatch.State
	watcher *timeoutwatch.Watcher
	cfg     Config

	runErr chan error
}

// New constructs a Controller for fs, to be mounted at cfg.MountPoint
// through binding. It does not mount anything yet; call Mount.
func New(binding dokanhost.Binding, fs dokanfs.FileSystem, cfg Config) *Controller {
	watcher := timeoutwatch.New(binding.ResetTimeout, timeoutwatch.DefaultWait, timeoutwatch.DefaultReset)

	state := dispatch.NewState(fs, watcher, cfg.Logger, cfg.VolumeName, cfg.FileSystemName)
	if cfg.NameMatcher != nil {
		state.SetNameMatcher(cfg.NameMatcher)
	} else {
		state.SetNameMatcher(func(pattern, name string) bool {
			return binding.IsNameInExpression(pattern, name, true)
		})
	}
	if cfg.SecurityDescriptor != nil {
		state.SetSecurityProvider(cfg.SecurityDescriptor)
	} else {
		state.SetSecurityProvider(binding.GetFileSecurity)
	}

	return &Controller{
		binding: binding,
		state:   state,
		watcher: watcher,
		cfg:     cfg,
		runErr:  make(chan error, 1),
	}
}

// State returns the dispatcher state bound to this mount, for tests or
// diagnostics that need direct access (e.g. cmd/dokanfsctl's handle dump).
func (c *Controller) State() *dispatch.State { return c.state }

func (c *Controller) operations() *dokanhost.Operations {
	s := c.state
	return &dokanhost.Operations{
		ZwCreateFile:         s.ZwCreateFile,
		Cleanup:              s.Cleanup,
		CloseFile:            s.CloseFile,
		ReadFile:             s.ReadFile,
		WriteFile:            s.WriteFile,
		FlushFileBuffers:     s.FlushFileBuffers,
		GetFileInformation:   s.GetFileInformation,
		FindFiles:            s.FindFiles,
		FindFilesWithPattern: s.FindFilesWithPattern,
		SetFileAttributes:    s.SetFileAttributes,
		SetFileTime:          s.SetFileTime,
		DeleteFile:           s.DeleteFile,
		DeleteDirectory:      s.DeleteDirectory,
		MoveFile:             s.MoveFile,
		SetEndOfFile:         s.SetEndOfFile,
		SetAllocationSize:    s.SetAllocationSize,
		GetDiskFreeSpace:     s.GetDiskFreeSpace,
		GetVolumeInformation: s.GetVolumeInformation,
		LockFile:             s.LockFile,
		UnlockFile:           s.UnlockFile,
		GetFileSecurity:      s.GetFileSecurity,
		SetFileSecurity:      s.SetFileSecurity,
		FindStreams:          s.FindStreams,
		Mounted:              s.Mounted,
		Unmounted:            s.Unmounted,
	}
}

// Mount validates the mount point, starts the timeout watcher, and invokes
// the driver binding's main loop. If foreground is true this call blocks
// until the filesystem is unmounted (mirroring the original's
// foreground=True branch, which calls DokanMain() directly); if false it
// runs the main loop on a background goroutine and returns once the mount
// point is confirmed ready (mirroring MountProcess's check_ready wait on the
// spawned subprocess).
//
// Grounded on mount()'s check_alive/check_ready split.
func (c *Controller) Mount(foreground bool) error {
	if err := vfspath.CheckMountPoint(c.cfg.MountPoint); err != nil {
		return err
	}

	opts := c.cfg.Options
	opts.MountPoint = c.cfg.MountPoint
	opts = opts.WithDefaults()

	c.watcher.Start()

	if foreground {
		if c.cfg.ReadyCallback != nil {
			go c.waitUntilReady(nil)
		}
		err := c.binding.Main(&opts, c.operations())
		if err != nil {
			c.watcher.Stop()
			return fmt.Errorf("dokan failed: %w", err)
		}
		if c.cfg.UnmountCallback != nil {
			c.cfg.UnmountCallback()
		}
		return nil
	}

	go func() {
		err := c.binding.Main(&opts, c.operations())
		if err != nil {
			err = fmt.Errorf("dokan failed: %w", err)
		}
		c.runErr <- err
	}()

	return c.waitUntilReady(c.runErr)
}

// waitUntilReady implements check_ready: poll os.Stat on the mount point up
// to readyPollAttempts times, readyPollInterval apart, failing fast if
// runErr reports the driver's main loop already exited. The poll is skipped
// only when both ReadyCallback and runErr are nil.
func (c *Controller) waitUntilReady(runErr chan error) error {
	if c.cfg.ReadyCallback == nil && runErr == nil {
		return nil
	}

	checkAlive := func() error {
		if runErr == nil {
			return nil
		}
		select {
		case err := <-runErr:
			if err != nil {
				return err
			}
			return fmt.Errorf("dokan mount process exited prematurely")
		default:
			return nil
		}
	}

	for i := 0; i < readyPollAttempts; i++ {
		if err := checkAlive(); err != nil {
			return err
		}
		if _, err := os.Stat(c.cfg.MountPoint); err == nil {
			if err := checkAlive(); err != nil {
				return err
			}
			if c.cfg.ReadyCallback != nil {
				c.cfg.ReadyCallback()
			}
			return nil
		}
		time.Sleep(readyPollInterval)
	}
	if err := checkAlive(); err != nil {
		return err
	}
	return fmt.Errorf("dokan mount process seems to be hung")
}

// Unmount asks the driver binding to remove the mount point, stops the
// timeout watcher, and closes every outstanding handle. Grounded on
// unmount()/MountProcess.unmount.
func (c *Controller) Unmount() error {
	if !c.binding.RemoveMountPoint(c.cfg.MountPoint) {
		return fmt.Errorf("filesystem could not be unmounted: %s", c.cfg.MountPoint)
	}
	c.watcher.Stop()
	if err := c.state.Handles().CloseAll(); err != nil {
		return err
	}
	if c.cfg.UnmountCallback != nil {
		c.cfg.UnmountCallback()
	}
	return nil
}
