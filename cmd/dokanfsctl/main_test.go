package main

import (
	"testing"

	"github.com/gocarina/gocsv"
	"github.com/mountkit/dokanfs"
	"github.com/mountkit/dokanfs/handles"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type dummyStream struct{ dokanfs.Stream }

func (dummyStream) Closed() bool { return true }

func TestBuildHandleRecordsFlattensRegistrySnapshot(t *testing.T) {
	reg := handles.New()
	of := reg.Register("/a.txt", dummyStream{}, dokanfs.ModeWrite, false)
	of.RecordWrite(0, 10)

	records := buildHandleRecords(reg.Snapshot())
	require.Len(t, records, 1)
	assert.Equal(t, of.Handle, records[0].Handle)
	assert.Equal(t, "/a.txt", records[0].Path)
	assert.EqualValues(t, 10, records[0].SizeWritten)
}

func TestHandleRecordsMarshalToCSV(t *testing.T) {
	records := []handleRecord{{Handle: 100, Path: "/a.txt", Mode: string(dokanfs.ModeWrite), SizeWritten: 5}}
	out, err := gocsv.MarshalString(&records)
	require.NoError(t, err)
	assert.Contains(t, out, "handle")
	assert.Contains(t, out, "/a.txt")
}
