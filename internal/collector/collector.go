// Package collector reads the firmware identity of the local machine from
// its SMBIOS tables.
package collector

import (
	"fmt"
	"os"
	"time"

	"github.com/siderolabs/go-smbios/smbios"
)

// Reader decodes the SMBIOS tables of the running system.
type Reader func() (*smbios.SMBIOS, error)

// Collect gathers the firmware identity using smbios.New.
func Collect() (Firmware, error) {
	return CollectWith(smbios.New)
}

// CollectWith gathers the firmware identity from read. The hostname and
// timestamp are filled in even when the tables cannot be read.
func CollectWith(read Reader) (Firmware, error) {
	hostname, _ := os.Hostname()

	fw := Firmware{
		CollectedAt: time.Now().UTC(),
		Hostname:    hostname,
	}

	s, err := read()
	if err != nil {
		return fw, fmt.Errorf("read SMBIOS: %w", err)
	}
	fw.BIOS, fw.System, fw.Board = fromSMBIOS(s)
	return fw, nil
}
