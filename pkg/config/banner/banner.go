package banner

import (
	"fmt"
	"io"
	"os"

	"github.com/dustin/go-humanize"

	"toneai/pkg/config"
)

const banner = `
████████╗ ██████╗ ███╗   ██╗███████╗ █████╗ ██╗
╚══██╔══╝██╔═══██╗████╗  ██║██╔════╝██╔══██╗██║
   ██║   ██║   ██║██╔██╗ ██║█████╗  ███████║██║
   ██║   ██║   ██║██║╚██╗██║██╔══╝  ██╔══██║██║
   ██║   ╚██████╔╝██║ ╚████║███████╗██║  ██║██║
   ╚═╝    ╚═════╝ ╚═╝  ╚═══╝╚══════╝╚═╝  ╚═╝╚═╝
`

// PrintWithEff prints the banner and a readiness checklist to stdout.
func PrintWithEff(eff config.EffectiveConfigResult, version string) {
	Fprint(os.Stdout, eff, version)
}

// Fprint writes the banner to w.
func Fprint(w io.Writer, eff config.EffectiveConfigResult, version string) {
	addr := eff.Addr
	if addr == "" && eff.Config != nil {
		addr = eff.Config.Addr()
	}
	src := eff.Source
	if src == "" {
		src = "flags"
	}

	fmt.Fprint(w, banner)
	fmt.Fprintln(w, "== Config =====================================================")
	fmt.Fprintf(w, "Listen:   %s\n", addr)
	fmt.Fprintf(w, "DB Path:  %s\n", eff.DBPath)
	if version != "" {
		fmt.Fprintf(w, "Version:  %s\n", version)
	}
	fmt.Fprintf(w, "Config:   %s\n", src)

	cfg := eff.Config
	if cfg == nil {
		return
	}

	fmt.Fprintln(w, "\n== Production? =================================================")
	keyLine := func(name string, n int, why string) {
		if n > 0 {
			fmt.Fprintf(w, "- %s API keys: OK (%d)\n", name, n)
		} else {
			fmt.Fprintf(w, "- %s API keys: MISSING (%s)\n", name, why)
		}
	}
	keyLine("Backend", len(cfg.Security.APIKeys.Backend), "required for backend services")
	keyLine("Frontend", len(cfg.Security.APIKeys.Frontend), "required for client access")
	keyLine("Admin", len(cfg.Security.APIKeys.Admin), "required for admin tooling")

	if cfg.Security.JWT.Secret != "" {
		fmt.Fprintln(w, "- Identity tokens: enabled")
	} else {
		fmt.Fprintln(w, "- Identity tokens: disabled (signatures only)")
	}

	switch cfg.Tone.Provider {
	case "echo":
		fmt.Fprintln(w, "- Tone provider: echo (messages are not rewritten)")
	default:
		model := cfg.Tone.Model
		if model == "" {
			model = "default model"
		}
		fmt.Fprintf(w, "- Tone provider: %s (%s)\n", cfg.Tone.Provider, model)
	}
	if len(cfg.Tone.Relationships) > 0 {
		fmt.Fprintf(w, "- Relationships: %d labels\n", len(cfg.Tone.Relationships))
	} else {
		fmt.Fprintln(w, "- Relationships: any label")
	}

	fmt.Fprintf(w, "- Max body size: %s\n", humanize.IBytes(uint64(cfg.Server.MaxBodySize.Int64())))

	if cfg.Maintenance.Enabled {
		fmt.Fprintf(w, "- Maintenance: enabled (cron=%s)\n", cfg.Maintenance.Cron)
	} else {
		fmt.Fprintln(w, "- Maintenance: disabled")
	}
	fmt.Fprintln(w)
}
