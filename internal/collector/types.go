package collector

import "time"

// Firmware identifies the board and BIOS build a settings dump came from.
type Firmware struct {
	CollectedAt time.Time  `json:"collected_at"`
	Hostname    string     `json:"hostname"`
	BIOS        BIOSInfo   `json:"bios"`
	System      SystemInfo `json:"system"`
	Board       BoardInfo  `json:"board"`
}

// BIOSInfo holds the SMBIOS type 0 strings.
type BIOSInfo struct {
	Vendor      string `json:"vendor"`
	Version     string `json:"version"`
	ReleaseDate string `json:"release_date"`
}

// SystemInfo holds computer manufacturer, model, serial number and UUID.
type SystemInfo struct {
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	SerialNumber string `json:"serial_number"`
	UUID         string `json:"uuid"`
}

// BoardInfo holds baseboard details.
type BoardInfo struct {
	Manufacturer string `json:"manufacturer"`
	Product      string `json:"product"`
	Version      string `json:"version"`
}
