// Command dokanfsctl is the operator-facing CLI for this module, with mount,
// handles, and unmount commands. No driver binding is wired into this build,
// so mount and unmount only validate their argument and return an error, and
// handles prints the CSV header of an empty handle table rather than one
// read from a running mount. Grounded on the
// teacher's cmd/main.go, which drives the same cli/v2 App{Commands: [...]}
// shape for its own disk-image operator commands.
package main

import (
	"fmt"
	"log"
	"os"

	"github.com/gocarina/gocsv"
	"github.com/mountkit/dokanfs/handles"
	"github.com/urfave/cli/v2"
)

func main() {
	app := cli.App{
		Name:  "dokanfsctl",
		Usage: "Operate a mounted user-mode filesystem adapter",
		Commands: []*cli.Command{
			{
				Name:      "mount",
				Usage:     "Mount a backing filesystem at a drive letter or directory",
				ArgsUsage: "MOUNTPOINT",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "volume-name", Value: "dokanfs"},
					&cli.StringFlag{Name: "fs-name", Value: "DOKANFS"},
					&cli.BoolFlag{Name: "allow-autorun"},
					&cli.BoolFlag{Name: "foreground"},
				},
				Action: mountCommand,
			},
			{
				Name:   "handles",
				Usage:  "Dump the open-handle table of a running mount as CSV",
				Action: handlesCommand,
			},
			{
				Name:      "unmount",
				Usage:     "Unmount a previously mounted drive letter or directory",
				ArgsUsage: "MOUNTPOINT",
				Action:    unmountCommand,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatalf("dokanfsctl: %s", err.Error())
	}
}

func mountCommand(c *cli.Context) error {
	mountPoint := c.Args().First()
	if mountPoint == "" {
		return fmt.Errorf("mount: MOUNTPOINT is required")
	}
	// The actual cgo binding to the host kernel driver lives outside this
	// repository (spec.md §6 scopes that ABI out); without one wired in,
	// there is nothing real to call Controller.Mount against.
	return fmt.Errorf("mount: no dokanhost.Binding is registered in this build")
}

// handleRecord is the flattened, CSV-marshalable view of a handles.OpenFile;
// OpenFile itself carries a sync.Mutex and an interface-typed Stream, which
// gocsv cannot encode directly, so this command copies out only the
// printable fields. Grounded on disks.go's CSV-record style.
type handleRecord struct {
	Handle      uint64 `csv:"handle"`
	Path        string `csv:"path"`
	Mode        string `csv:"mode"`
	IsDirectory bool   `csv:"is_directory"`
	SizeWritten int64  `csv:"size_written"`
}

// buildHandleRecords flattens a Registry snapshot into the CSV-marshalable
// shape: OpenFile itself carries a sync.Mutex and an interface-typed
// Stream, which gocsv cannot encode directly.
func buildHandleRecords(snapshot []*handles.OpenFile) []handleRecord {
	records := make([]handleRecord, 0, len(snapshot))
	for _, of := range snapshot {
		records = append(records, handleRecord{
			Handle:      of.Handle,
			Path:        of.Path,
			Mode:        string(of.Mode),
			IsDirectory: of.IsDir,
			SizeWritten: of.SizeWritten(),
		})
	}
	return records
}

func handlesCommand(c *cli.Context) error {
	// A real deployment would attach to a running Controller's
	// dispatch.State via some IPC boundary this repository does not
	// define; until that boundary exists, this dumps an empty table's
	// header row so the output shape can be scripted against in advance.
	records := buildHandleRecords(handles.New().Snapshot())

	out, err := gocsv.MarshalString(&records)
	if err != nil {
		return fmt.Errorf("handles: %w", err)
	}
	fmt.Fprint(c.App.Writer, out)
	return nil
}

func unmountCommand(c *cli.Context) error {
	mountPoint := c.Args().First()
	if mountPoint == "" {
		return fmt.Errorf("unmount: MOUNTPOINT is required")
	}
	return fmt.Errorf("unmount: no dokanhost.Binding is registered in this build")
}
