package collector

import (
	"strings"

	"github.com/siderolabs/go-smbios/smbios"
)

// fromSMBIOS copies the identifying strings out of a decoded SMBIOS table.
func fromSMBIOS(s *smbios.SMBIOS) (BIOSInfo, SystemInfo, BoardInfo) {
	bios := BIOSInfo{
		Vendor:      clean(s.BIOSInformation.Vendor),
		Version:     clean(s.BIOSInformation.Version),
		ReleaseDate: clean(s.BIOSInformation.ReleaseDate),
	}
	sys := SystemInfo{
		Manufacturer: clean(s.SystemInformation.Manufacturer),
		Model:        clean(s.SystemInformation.ProductName),
		SerialNumber: clean(s.SystemInformation.SerialNumber),
		UUID:         clean(s.SystemInformation.UUID),
	}
	board := BoardInfo{
		Manufacturer: clean(s.BaseboardInformation.Manufacturer),
		Product:      clean(s.BaseboardInformation.Product),
		Version:      clean(s.BaseboardInformation.Version),
	}
	return bios, sys, board
}

// OEM placeholder strings carry no information.
var placeholders = []string{
	"to be filled by o.e.m.",
	"default string",
	"system serial number",
	"not applicable",
}

func clean(s string) string {
	s = strings.TrimSpace(s)
	lower := strings.ToLower(s)
	for _, p := range placeholders {
		if lower == p {
			return ""
		}
	}
	return s
}
