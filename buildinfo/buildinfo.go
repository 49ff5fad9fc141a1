// Package buildinfo reports the version stamped into the binaries at link
// time with -ldflags "-X".
package buildinfo

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"text/tabwriter"
)

var (
	version  = "dev"
	revision = "unknown"
	date     = "unknown"

	// Info describes the running binary
	Info = info{
		Version:   version,
		Revision:  revision,
		Date:      date,
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
	}
)

type info struct {
	Version   string `json:"version"`
	Revision  string `json:"revision"`
	Date      string `json:"build_date"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
}

// String is the one line form used by --version
func (i info) String() string {
	return fmt.Sprintf("%s (revision %s, built %s, %s %s/%s)", i.Version, i.Revision, i.Date, i.GoVersion, i.OS, i.Arch)
}

// Print writes a table of the build information
func Print(dest io.Writer) error {
	w := tabwriter.NewWriter(dest, 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "Version:\t%q\n", Info.Version)
	fmt.Fprintf(w, "Revision:\t%q\n", Info.Revision)
	fmt.Fprintf(w, "Build Date:\t%q\n", Info.Date)
	fmt.Fprintf(w, "Go Version:\t%q\n", Info.GoVersion)
	fmt.Fprintf(w, "Go OS:\t%q\n", Info.OS)
	fmt.Fprintf(w, "Go ARCH:\t%q\n", Info.Arch)
	return w.Flush()
}

// Handler serves the build information as JSON
func Handler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(Info)
}
