package devices

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tphakala/pcmplay/internal/conf"
	"github.com/tphakala/pcmplay/internal/playback"
	"github.com/tphakala/pcmplay/internal/playback/backends"
)

// Command creates the devices command
func Command(settings *conf.Settings) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List playback devices",
		Long:  "List the output devices the configured backend and host API can open.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			driver, err := backends.New(settings.Playback.Backend, nil)
			if err != nil {
				return err
			}
			devices, err := driver.Devices(settings.Playback.HostAPI)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), devices)
			}
			return writeTable(cmd.OutOrStdout(), devices)
		},
	}

	cmd.Flags().String("backend", "", "Playback backend (malgo, oto, null)")
	cmd.Flags().String("hostapi", "", "Host API to enumerate")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of a table")
	_ = cmd.Flags().SetAnnotation("backend", conf.FlagAnnotation, []string{"playback.backend"})
	_ = cmd.Flags().SetAnnotation("hostapi", conf.FlagAnnotation, []string{"playback.hostapi"})

	return cmd
}

func writeJSON(w io.Writer, devices []playback.DeviceInfo) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(devices)
}

func writeTable(w io.Writer, devices []playback.DeviceInfo) error {
	if len(devices) == 0 {
		_, err := fmt.Fprintln(w, "No playback devices found")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tDEFAULT\tHOST API\tNAME\tID")
	for _, d := range devices {
		def := ""
		if d.Default {
			def = "*"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\n", d.Index, def, d.HostAPI, d.Name, d.ID)
	}
	return tw.Flush()
}
