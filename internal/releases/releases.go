// Package releases reads the release list of a distribution info file and
// prints it. It never modifies the info file.
package releases

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/jcapiitao/rdopkg/shared/utils"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"
)

// Release is one entry of the info file's releases list. Keys other than
// name and status are kept in Extra.
type Release struct {
	Name   string         `yaml:"name"`
	Status string         `yaml:"status"`
	Extra  map[string]any `yaml:",inline"`
}

type Info struct {
	Releases []Release `yaml:"releases"`
}

// Load parses the info file at path.
func Load(path string) (*Info, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading info file: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Info, error) {
	var info Info
	if err := yaml.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("parsing info file: %w", err)
	}
	return &info, nil
}

// Find returns the release called name
func (i *Info) Find(name string) (Release, bool) {
	for _, r := range i.Releases {
		if r.Name == name {
			return r, true
		}
	}
	return Release{}, false
}

// InPhase returns the names of the releases whose status is phase
func (i *Info) InPhase(phase string) []string {
	var names []string
	for _, r := range i.Releases {
		if r.Status == phase {
			names = append(names, r.Name)
		}
	}
	return names
}

var (
	nameColor  = color.New(color.Bold)
	keyColor   = color.New(color.FgCyan)
	phaseColor = map[string]*color.Color{
		"development": color.New(color.FgYellow),
		"maintained":  color.New(color.FgGreen),
		"eol":         color.New(color.FgRed),
	}
)

// PrintRelease writes one release with its remaining keys in name order.
func PrintRelease(w io.Writer, r Release) {
	nameColor.Fprintf(w, "name: %s\n", r.Name)
	status := r.Status
	if c, ok := phaseColor[strings.ToLower(status)]; ok {
		status = c.Sprint(status)
	}
	fmt.Fprintf(w, "%s %s\n", keyColor.Sprint("status:"), status)

	for _, k := range utils.SortedKeys(r.Extra) {
		printValue(w, k, r.Extra[k], "")
	}
}

func printValue(w io.Writer, key string, val any, indent string) {
	switch v := val.(type) {
	case map[string]any:
		fmt.Fprintf(w, "%s%s\n", indent, keyColor.Sprint(key+":"))
		for _, k := range utils.SortedKeys(v) {
			printValue(w, k, v[k], indent+"  ")
		}
	case []any:
		fmt.Fprintf(w, "%s%s\n", indent, keyColor.Sprint(key+":"))
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				fmt.Fprintf(w, "%s  -\n", indent)
				for _, k := range utils.SortedKeys(m) {
					printValue(w, k, m[k], indent+"    ")
				}
				continue
			}
			fmt.Fprintf(w, "%s  - %v\n", indent, item)
		}
	default:
		fmt.Fprintf(w, "%s%s %v\n", indent, keyColor.Sprint(key+":"), v)
	}
}

// Query prints the releases selected by name or phase. With neither every
// release is printed, separated by blank lines. A phase query prints names
// only.
func Query(w io.Writer, info *Info, name, phase string) {
	switch {
	case name != "":
		r, ok := info.Find(name)
		if !ok {
			fmt.Fprintln(w, "No release match your filter.")
			return
		}
		PrintRelease(w, r)

	case phase != "":
		names := info.InPhase(phase)
		if len(names) == 0 {
			fmt.Fprintln(w, "No release match your phase filter.")
			return
		}
		fmt.Fprintln(w, strings.Join(names, "\n"))

	default:
		for _, r := range info.Releases {
			PrintRelease(w, r)
			fmt.Fprintln(w)
		}
	}
}
