package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnsupportedPlatform     = errors.New("unsupported platform")
	ErrUnsupportedArchitecture = errors.New("unsupported architecture")
)

type Platform string

const (
	PlatformDarwin    Platform = "darwin"
	PlatformLinux     Platform = "linux"
	PlatformWindows64 Platform = "windows64"
)

type Arch string

const (
	ArchAArch64 Arch = "aarch64"
	ArchX8664   Arch = "x86_64"
)

// PlatformArch holds the platform and architecture tokens as they appear in artifact names.
type PlatformArch struct {
	Platform Platform
	Arch     Arch
}

func (p PlatformArch) String() string {
	return fmt.Sprintf("%s/%s", p.Platform, p.Arch)
}

// Patterns are matched case-insensitively against the lowercased kernel name. All of them are
// prefixes: 'MINGW64_NT-10.0-19045' is as valid as 'MINGW32_NT'.
var platformPrefixes = []struct {
	prefix   string
	platform Platform
}{
	{"linux", PlatformLinux},
	{"darwin", PlatformDarwin},
	{"mingw", PlatformWindows64},
	{"msys", PlatformWindows64},
	{"cygwin", PlatformWindows64},
}

var archNames = map[string]Arch{
	"x86_64":  ArchX8664,
	"amd64":   ArchX8664,
	"aarch64": ArchAArch64,
	"arm64":   ArchAArch64,
}

// Detect maps raw 'uname -s' and 'uname -m' values to their canonical tokens. Anything not in the
// table is an error; there is no best-effort guess.
func Detect(osName string, machine string) (PlatformArch, error) {
	p, err := DetectPlatform(osName)
	if err != nil {
		return PlatformArch{}, err
	}
	a, err := DetectArch(machine)
	if err != nil {
		return PlatformArch{}, err
	}
	return PlatformArch{Platform: p, Arch: a}, nil
}

func DetectPlatform(osName string) (Platform, error) {
	n := strings.ToLower(strings.TrimSpace(osName))
	for _, pp := range platformPrefixes {
		if strings.HasPrefix(n, pp.prefix) {
			return pp.platform, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedPlatform, osName)
}

func DetectArch(machine string) (Arch, error) {
	if a, ok := archNames[strings.ToLower(strings.TrimSpace(machine))]; ok {
		return a, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedArchitecture, machine)
}

// HostPlatform detects the platform of the running host.
func HostPlatform() (PlatformArch, error) {
	osName, machine, err := uname()
	if err != nil {
		return PlatformArch{}, fmt.Errorf("unable to read host system information: %w", err)
	}
	return Detect(osName, machine)
}

// ResolvePlatform returns the host platform with the given overrides applied. Overrides may either be
// canonical tokens ('windows64', 'aarch64') or raw uname values.
func ResolvePlatform(platformOverride string, archOverride string) (PlatformArch, error) {
	var (
		pa  PlatformArch
		err error
	)
	if platformOverride == "" || archOverride == "" {
		if pa, err = HostPlatform(); err != nil {
			return PlatformArch{}, err
		}
	}

	if platformOverride != "" {
		if Platform(platformOverride) == PlatformWindows64 {
			pa.Platform = PlatformWindows64
		} else if pa.Platform, err = DetectPlatform(platformOverride); err != nil {
			return PlatformArch{}, err
		}
	}
	if archOverride != "" {
		if pa.Arch, err = DetectArch(archOverride); err != nil {
			return PlatformArch{}, err
		}
	}
	return pa, nil
}
