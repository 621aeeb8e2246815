package malgo

import (
	"encoding/hex"
	"fmt"
	"runtime"
	"slices"
	"strings"

	"github.com/gen2brain/malgo"

	"github.com/tphakala/pcmplay/internal/errors"
	"github.com/tphakala/pcmplay/internal/playback"
)

// hostAPIs maps host API names accepted in configuration to miniaudio backends
var hostAPIs = map[string]malgo.Backend{
	"wasapi":     malgo.BackendWasapi,
	"dsound":     malgo.BackendDsound,
	"winmm":      malgo.BackendWinmm,
	"coreaudio":  malgo.BackendCoreaudio,
	"sndio":      malgo.BackendSndio,
	"audio4":     malgo.BackendAudio4,
	"oss":        malgo.BackendOss,
	"pulseaudio": malgo.BackendPulseaudio,
	"pulse":      malgo.BackendPulseaudio,
	"alsa":       malgo.BackendAlsa,
	"jack":       malgo.BackendJack,
	"aaudio":     malgo.BackendAaudio,
	"opensl":     malgo.BackendOpensl,
	"null":       malgo.BackendNull,
}

// HostAPIs returns the host API names understood by the driver, sorted
func HostAPIs() []string {
	names := make([]string, 0, len(hostAPIs))
	for name := range hostAPIs {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// platformBackend returns the default backend for the current platform
func platformBackend() (malgo.Backend, error) {
	switch runtime.GOOS {
	case "linux":
		return malgo.BackendAlsa, nil
	case "windows":
		return malgo.BackendWasapi, nil
	case "darwin":
		return malgo.BackendCoreaudio, nil
	default:
		return malgo.BackendNull, errors.Newf("unsupported operating system %s", runtime.GOOS).
			Component(componentMalgo).
			Category(errors.CategoryAudioDevice).
			Context("os", runtime.GOOS).
			Build()
	}
}

// resolveBackend maps a host API name to a backend. Empty selects the platform default.
func resolveBackend(hostAPI string) (malgo.Backend, error) {
	name := strings.ToLower(strings.TrimSpace(hostAPI))
	if name == "" || name == "default" {
		return platformBackend()
	}
	backend, ok := hostAPIs[name]
	if !ok {
		return malgo.BackendNull, errors.New(fmt.Errorf("%w %q", playback.ErrUnknownHostAPI, hostAPI)).
			Component(componentMalgo).
			Category(errors.CategoryConfiguration).
			Context("host_api", hostAPI).
			Context("known", strings.Join(HostAPIs(), ",")).
			Build()
	}
	return backend, nil
}

// candidate is a playback device reduced to the fields used for selection
type candidate struct {
	index     int
	name      string
	id        string // decoded device ID, e.g. ":1,0" for ALSA hw devices
	isDefault bool
}

func candidatesFrom(infos []malgo.DeviceInfo) []candidate {
	out := make([]candidate, 0, len(infos))
	for i := range infos {
		// miniaudio's null sink shows up as a device on some backends
		if strings.Contains(infos[i].Name(), "Discard all samples") {
			continue
		}
		out = append(out, candidate{
			index:     i,
			name:      infos[i].Name(),
			id:        decodeDeviceID(infos[i].ID.String()),
			isDefault: infos[i].IsDefault == 1,
		})
	}
	return out
}

// selectDevice finds the device matching name: default aliases first, then an
// exact name, then a decoded ID, then a name substring.
func selectDevice(devices []candidate, name string) (candidate, error) {
	if name == "" || name == "default" || name == "sysdefault" {
		for _, d := range devices {
			if d.isDefault {
				return d, nil
			}
		}
		if len(devices) > 0 {
			return devices[0], nil
		}
	}

	for _, d := range devices {
		if d.name == name {
			return d, nil
		}
	}
	for _, d := range devices {
		if d.id == name {
			return d, nil
		}
	}
	for _, d := range devices {
		if strings.Contains(strings.ToLower(d.name), strings.ToLower(name)) {
			return d, nil
		}
	}

	return candidate{}, errors.New(fmt.Errorf("%w: %q among %d devices", playback.ErrNoDevice, name, len(devices))).
		Component(componentMalgo).
		Category(errors.CategoryNotFound).
		Context("device_name", name).
		Context("available_devices", len(devices)).
		Build()
}

// decodeDeviceID turns miniaudio's hex-encoded device ID into readable text,
// falling back to the hex form.
func decodeDeviceID(hexID string) string {
	raw, err := hex.DecodeString(hexID)
	if err != nil {
		return hexID
	}
	decoded := strings.TrimRight(string(raw), "\x00")
	for _, r := range decoded {
		if r < 0x20 || r > 0x7e {
			return hexID
		}
	}
	if decoded == "" {
		return hexID
	}
	return decoded
}

// Devices implements playback.DeviceLister
func (d *Driver) Devices(hostAPI string) ([]playback.DeviceInfo, error) {
	backend, err := resolveBackend(hostAPI)
	if err != nil {
		return nil, err
	}

	ctx, err := malgo.InitContext([]malgo.Backend{backend}, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, errors.New(err).
			Component(componentMalgo).
			Category(errors.CategoryAudioDevice).
			Context("operation", "init_context").
			Context("host_api", hostAPI).
			Build()
	}
	defer func() {
		_ = ctx.Uninit()
		ctx.Free()
	}()

	infos, err := ctx.Devices(malgo.Playback)
	if err != nil {
		return nil, errors.New(err).
			Component(componentMalgo).
			Category(errors.CategoryAudioDevice).
			Context("operation", "enumerate_devices").
			Build()
	}

	apiName := backendName(backend)
	candidates := candidatesFrom(infos)
	devices := make([]playback.DeviceInfo, 0, len(candidates))
	for _, c := range candidates {
		devices = append(devices, playback.DeviceInfo{
			Index:   c.index,
			Name:    c.name,
			ID:      c.id,
			Default: c.isDefault,
			HostAPI: apiName,
		})
	}
	return devices, nil
}

func backendName(backend malgo.Backend) string {
	for name, b := range hostAPIs {
		if b == backend && name != "pulse" {
			return name
		}
	}
	return "unknown"
}
