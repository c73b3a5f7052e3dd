package main

import (
	"io/ioutil"
	"os"
	"syscall"
	"testing"
	"time"

	"github.com/m-lab/go/osx"
	"github.com/m-lab/go/rtx"
)

// TestMain makes sure that starting up main() does not panic, and that it
// shuts down cleanly on SIGTERM. There is not much more to assert without a
// real peer connecting, but a clean startup/shutdown cycle already exercises
// flag parsing, the journal attach path, and the accept loop's ctx.Err()
// based exit.
func TestMain(t *testing.T) {
	dir, err := ioutil.TempDir("", "pcomnd-journal")
	rtx.Must(err, "could not create tempdir")
	defer os.RemoveAll(dir)

	for _, v := range []struct{ name, val string }{
		{"PORT", "0"},
		{"PROM", ":0"},
		{"JOURNAL", dir},
		{"DIAG.INTERVAL", "10ms"},
	} {
		cleanup := osx.MustSetenv(v.name, v.val)
		defer cleanup()
	}

	go func() {
		time.Sleep(200 * time.Millisecond)
		rtx.Must(syscall.Kill(os.Getpid(), syscall.SIGTERM), "could not signal self")
	}()

	main()
}
