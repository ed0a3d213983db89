// Package mdns builds the mDNS/Bonjour advertisement contract: the TXT
// record map and the loopback/disabled suppression rule. The actual
// ServiceDaemon registration and UDP broadcast are left out deliberately —
// this package is the pure information-builder half only; a real announcer
// (e.g. github.com/grandcat/zeroconf) would sit on top of
// BuildTXT/ShouldSuppress in an external collaborator.
package mdns

import (
	"fmt"
	"strconv"
	"strings"
)

// ServiceType is the mDNS service type this instance advertises under.
const ServiceType = "_yocore._tcp.local."

// Metadata is the information advertised in one instance's TXT record.
type Metadata struct {
	Version string
	UUID string
	Hostname string
	InstanceName string // optional; empty means none configured
	APIKeyRequired bool
	ProjectCount int
}

// BuildTXT builds the TXT record key/value map: version, uuid, hostname,
// name (optional), api_key_required ("true"|"false"), and projects (as a
// decimal string). The `name` key is present only when InstanceName is
// non-empty.
func BuildTXT(m Metadata) map[string]string {
	txt := map[string]string{
		"version": m.Version,
		"uuid": m.UUID,
		"hostname": m.Hostname,
		"api_key_required": strconv.FormatBool(m.APIKeyRequired),
		"projects": strconv.Itoa(m.ProjectCount),
	}
	if m.InstanceName != "" {
		txt["name"] = m.InstanceName
	}
	return txt
}

// ShouldSuppress reports whether advertisement should be withheld: either
// the operator disabled it, or the configured bind host is a loopback
// address (advertising a loopback-only service on the local network is
// useless — no other host could ever reach it).
func ShouldSuppress(host string, mdnsEnabled bool) bool {
	if !mdnsEnabled {
		return true
	}
	return isLoopbackHost(host)
}

func isLoopbackHost(host string) bool {
	switch strings.ToLower(host) {
	case "127.0.0.1", "::1", "localhost":
		return true
	}
	return false
}

// GenerateInstanceName returns customName if set, otherwise a deterministic
// "Yocore-{hostname}-{short_uuid}" name built from the first 8 characters
// of uuid.
func GenerateInstanceName(hostname, uuid, customName string) string {
	if customName != "" {
		return customName
	}
	short := uuid
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("Yocore-%s-%s", hostname, short)
}
