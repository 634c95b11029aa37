//go:build windows

package config

import (
	"os"

	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"
	"golang.org/x/term"
)

// EnableColorOutput checks if colorized output is possible and turns on VT100
// sequence processing of the Windows console.
func EnableColorOutput(stream *os.File) bool {
	if !colorAllowed() {
		return false
	}
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, `SOFTWARE\Microsoft\Windows NT\CurrentVersion`, registry.QUERY_VALUE)
	if err != nil {
		return false
	}
	defer k.Close()

	if v, _, err := k.GetIntegerValue("CurrentMajorVersionNumber"); err != nil || v < 10 {
		return false
	}
	if !term.IsTerminal(int(stream.Fd())) {
		return false
	}

	const enableVirtualTerminalProcessing uint32 = 0x4

	var mode uint32
	h := windows.Handle(stream.Fd())
	if err := windows.GetConsoleMode(h, &mode); err != nil {
		return false
	}
	return windows.SetConsoleMode(h, mode|enableVirtualTerminalProcessing) == nil
}
