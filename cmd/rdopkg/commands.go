package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"time"

	"github.com/jcapiitao/rdopkg/internal/releases"
	"github.com/jcapiitao/rdopkg/internal/specfile"
	"github.com/jcapiitao/rdopkg/internal/watch"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// getSetCommand builds the "get NAME" / "set NAME VALUE" pair shared by
// tags, macros and magic comments.
func getSetCommand(use, short string,
	get func(spec *specfile.Spec, name string, expand bool) (string, bool, error),
	set func(spec *specfile.Spec, name, value string) error,
) *cobra.Command {
	parent := &cobra.Command{Use: use, Short: short}

	getCmd := &cobra.Command{
		Use:   "get NAME",
		Short: "Print the value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			expand, _ := cmd.Flags().GetBool("expand")
			ws, err := openWorkspace()
			if err != nil {
				return err
			}
			v, ok, err := get(ws.Spec, args[0], expand)
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%s %q not found", use, args[0])
			}
			fmt.Println(v)
			return nil
		},
	}
	getCmd.Flags().BoolP("expand", "e", false, "Expand macros in the value")

	setCmd := &cobra.Command{
		Use:   "set NAME VALUE",
		Short: "Change the value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ws, err := openWorkspace()
			if err != nil {
				return err
			}
			if err := set(ws.Spec, args[0], args[1]); err != nil {
				return err
			}
			return finish(ws, use+"-set")
		},
	}

	parent.AddCommand(getCmd, setCmd)
	return parent
}

func getTag(spec *specfile.Spec, name string, expand bool) (string, bool, error) {
	v, ok := spec.LookupTag(name)
	if !ok || !expand {
		return v, ok, nil
	}
	v, err := spec.GetTagExpanded(name)
	return v, true, err
}

func setTag(spec *specfile.Spec, name, value string) error {
	if !spec.SetTag(name, value) {
		return fmt.Errorf("tag %q not found", name)
	}
	return nil
}

func getMacro(spec *specfile.Spec, name string, expand bool) (string, bool, error) {
	v, ok := spec.GetMacro(name)
	if !ok || !expand {
		return v, ok, nil
	}
	v, err := spec.GetMacroExpanded(name)
	return v, true, err
}

func parseEpochPolicy(s string) (specfile.EpochPolicy, error) {
	switch s {
	case "", "default":
		return specfile.EpochDefault, nil
	case "always":
		return specfile.EpochAlways, nil
	case "omit":
		return specfile.EpochOmit, nil
	}
	return 0, fmt.Errorf("unknown epoch policy %q (want default, always or omit)", s)
}

func versionCommand(use, short string, get func(*specfile.Spec, specfile.EpochPolicy) (string, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			epoch, _ := cmd.Flags().GetString("epoch")
			policy, err := parseEpochPolicy(epoch)
			if err != nil {
				return err
			}
			ws, err := openWorkspace()
			if err != nil {
				return err
			}
			v, err := get(ws.Spec, policy)
			if err != nil {
				return err
			}
			fmt.Println(v)
			return nil
		},
	}
	cmd.Flags().String("epoch", "default", "Epoch prefix (default, always, omit)")
	return cmd
}

var bumpCmd = &cobra.Command{
	Use:   "bump",
	Short: "Bump the Release tag",
	Long: `Bump one numeric component of the Release tag.

The index is LAST-NUMERIC (default), MAJOR, MINOR, PATCH, a 1-based
position, or 0 for no change.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		milestone, _ := cmd.Flags().GetString("milestone")
		index, _ := cmd.Flags().GetString("index")

		ws, err := openWorkspace()
		if err != nil {
			return err
		}
		ok, err := ws.Spec.RecognizedRelease()
		if err != nil {
			return err
		}
		if !ok {
			color.New(color.FgYellow).Fprintln(os.Stderr, "warning: unrecognized Release format, bumping anyway")
		}
		if err := ws.Spec.BumpRelease(milestone, index); err != nil {
			return err
		}
		release, _ := ws.Spec.GetTag("Release")
		fmt.Println(release)
		return finish(ws, "bump")
	},
}

var patchesCmd = &cobra.Command{
	Use:   "patches",
	Short: "Inspect and rewrite the patch series",
}

var patchesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the patch series",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace()
		if err != nil {
			return err
		}
		spec := ws.Spec

		key := color.New(color.FgCyan)
		fmt.Printf("%s %s\n", key.Sprint("apply method:"), spec.PatchApplyMethod())
		if base, n, err := spec.PatchesBase(false); err == nil && base != "" {
			fmt.Printf("%s %s", key.Sprint("patches base:"), base)
			if n > 0 {
				fmt.Printf(" (+%d excluded)", n)
			}
			fmt.Println()
		}
		if re := spec.PatchesIgnoreRegex(); re != nil {
			fmt.Printf("%s %s\n", key.Sprint("patches ignore:"), re)
		}
		for i, fn := range spec.PatchFilenames() {
			fmt.Printf("%4d  %s\n", i+1, fn)
		}
		return nil
	},
}

var patchesSetCmd = &cobra.Command{
	Use:   "set [FILES...]",
	Short: "Replace the patch series with FILES",
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace()
		if err != nil {
			return err
		}
		if err := ws.Spec.SetNewPatches(args); err != nil {
			return err
		}
		return finish(ws, "patches-set")
	},
}

var patchesSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Set the patch series from the *.patch files next to the spec",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace()
		if err != nil {
			return err
		}
		changed, err := ws.SyncPatches()
		if err != nil {
			return err
		}
		if !changed {
			fmt.Println("Patch series already up to date")
			return nil
		}
		patches, err := ws.SeriesPatches()
		if err != nil {
			return err
		}
		commit := color.New(color.FgYellow)
		for _, p := range patches {
			short := p.Commit
			if len(short) > 8 {
				short = short[:8]
			}
			fmt.Printf("%-8s  %s  %s\n", commit.Sprint(short), p.Name, p.Subject)
		}
		return finish(ws, "patches-sync")
	},
}

var subpackagesCmd = &cobra.Command{
	Use:   "subpackages",
	Short: "List subpackages and their line ranges",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		pythonMain, _ := cmd.Flags().GetBool("python-main")

		ws, err := openWorkspace()
		if err != nil {
			return err
		}
		if pythonMain {
			name, err := ws.Spec.GuessMainPythonSubpackage()
			if err != nil {
				return err
			}
			fmt.Println(name)
			return nil
		}

		sp, err := ws.Spec.Subpackages()
		if err != nil {
			return err
		}
		if sp == nil {
			fmt.Println("No subpackages")
			return nil
		}
		for _, p := range sp.All() {
			fmt.Printf("%-40s lines %d-%d\n", p.Name, p.Region.Start+1, p.Region.End)
		}
		return nil
	},
}

var requiresCmd = &cobra.Command{
	Use:   "requires",
	Short: "Edit Requires lines",
}

var requiresAddCmd = &cobra.Command{
	Use:   "add ENTRY",
	Short: "Add a Requires line to a (sub)package",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		subpkg, _ := cmd.Flags().GetString("subpackage")
		python, _ := cmd.Flags().GetBool("python")

		ws, err := openWorkspace()
		if err != nil {
			return err
		}
		if python {
			if subpkg == "" {
				if subpkg, err = ws.Spec.GuessMainPythonSubpackage(); err != nil {
					return err
				}
			}
			err = ws.Spec.AddPythonRequires(args[0], subpkg, app.cfg.PythonVersion)
		} else {
			err = ws.Spec.AddRequires(args[0], subpkg)
		}
		if err != nil {
			return err
		}
		return finish(ws, "requires-add")
	},
}

var changelogCmd = &cobra.Command{
	Use:   "changelog",
	Short: "Read and write %changelog entries",
}

var changelogAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Prepend a %changelog entry for the current version",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		email, _ := cmd.Flags().GetString("email")
		changes, _ := cmd.Flags().GetStringArray("message")

		ws, err := openWorkspace()
		if err != nil {
			return err
		}
		if err := ws.Spec.NewChangelogEntry(user, email, changes, time.Now()); err != nil {
			return err
		}
		return finish(ws, "changelog-add")
	},
}

var changelogLastCmd = &cobra.Command{
	Use:   "last",
	Short: "Print the newest %changelog entry",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		strip, _ := cmd.Flags().GetBool("strip")

		ws, err := openWorkspace()
		if err != nil {
			return err
		}
		head, body, err := ws.Spec.LastChangelogEntry(strip)
		if err != nil {
			return err
		}
		if head == "" {
			fmt.Println("No changelog entries")
			return nil
		}
		color.New(color.Bold).Println(head)
		for _, line := range body {
			fmt.Println(line)
		}
		return nil
	},
}

var releaseCmd = &cobra.Command{
	Use:   "release",
	Short: "Show releases from the distribution info file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		name, _ := cmd.Flags().GetString("release")
		phase, _ := cmd.Flags().GetString("phase")
		infoFile, _ := cmd.Flags().GetString("info-file")
		if infoFile == "" {
			infoFile = app.cfg.InfoFile
		}

		info, err := releases.Load(infoFile)
		if err != nil {
			return err
		}
		releases.Query(os.Stdout, info, name, phase)
		return nil
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List journal snapshots of the spec file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace()
		if err != nil {
			return err
		}
		snaps, err := ws.History()
		if err != nil {
			return err
		}
		if len(snaps) == 0 {
			fmt.Println("No snapshots found")
			return nil
		}
		for _, s := range snaps {
			fmt.Printf("%s  %s  %-14s %6d bytes\n",
				s.ID[:8],
				s.CreatedAt.Local().Format(time.RFC3339),
				s.Operation,
				s.Size,
			)
		}
		return nil
	},
}

var restoreCmd = &cobra.Command{
	Use:   "restore [ID]",
	Short: "Write a journal snapshot back to the spec file",
	Long:  `Write a journal snapshot back to the spec file. Without ID the newest snapshot is restored.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace()
		if err != nil {
			return err
		}
		if len(args) == 0 {
			snap, err := ws.Undo()
			if err != nil {
				return err
			}
			fmt.Printf("Restored %s from %s (%s)\n", ws.Spec.Path(), snap.ID[:8], snap.Operation)
			return nil
		}
		id, err := resolveSnapshotID(ws.History, args[0])
		if err != nil {
			return err
		}
		snap, err := ws.Restore(id)
		if err != nil {
			return err
		}
		fmt.Printf("Restored %s from %s (%s)\n", ws.Spec.Path(), snap.ID[:8], snap.Operation)
		return nil
	},
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Print a summary of the spec every time it changes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ws, err := openWorkspace()
		if err != nil {
			return err
		}
		w, err := watch.New(ws.Spec.Path(), app.logger.Logger)
		if err != nil {
			return err
		}
		defer w.Close()

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		stamp := color.New(color.FgCyan)
		err = w.Run(ctx, func(s watch.Summary, err error) {
			now := stamp.Sprint(time.Now().Format(time.TimeOnly))
			if err != nil {
				fmt.Printf("%s  %s\n", now, color.RedString(err.Error()))
				return
			}
			fmt.Printf("%s  %s-%s-%s  %d patches\n", now, s.Name, s.Version, s.Release, s.Patches)
		})
		if err == context.Canceled {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(
		getSetCommand("tag", "Get or set preamble tags", getTag, setTag),
		getSetCommand("macro", "Get or set %global/%define macros", getMacro, (*specfile.Spec).SetMacro),
		getSetCommand("magic", "Get or set magic comments", (*specfile.Spec).GetMagicComment, (*specfile.Spec).SetMagicComment),
		versionCommand("nvr", "Print name-[epoch:]version-release", (*specfile.Spec).GetNVR),
		versionCommand("vr", "Print [epoch:]version-release", (*specfile.Spec).GetVR),
	)

	bumpCmd.Flags().StringP("milestone", "m", "", "Milestone to set (default: keep current)")
	bumpCmd.Flags().StringP("index", "i", specfile.BumpLastNumeric, "Release component to bump")

	patchesCmd.AddCommand(patchesListCmd, patchesSetCmd, patchesSyncCmd)

	subpackagesCmd.Flags().Bool("python-main", false, "Print the main python subpackage only")

	requiresAddCmd.Flags().StringP("subpackage", "p", "", "Subpackage name (default: main package)")
	requiresAddCmd.Flags().Bool("python", false, "Treat ENTRY as a python dependency")
	requiresCmd.AddCommand(requiresAddCmd)

	changelogAddCmd.Flags().StringP("user", "u", "", "Author name")
	changelogAddCmd.Flags().StringP("email", "e", "", "Author email")
	changelogAddCmd.Flags().StringArrayP("message", "m", nil, "Change line (repeatable)")
	changelogAddCmd.MarkFlagRequired("user")
	changelogAddCmd.MarkFlagRequired("email")
	changelogLastCmd.Flags().Bool("strip", false, "Strip the leading '*' and '-' markers")
	changelogCmd.AddCommand(changelogAddCmd, changelogLastCmd)

	releaseCmd.Flags().StringP("release", "r", "", "Show only this release")
	releaseCmd.Flags().StringP("phase", "p", "", "List releases in this phase")
	releaseCmd.Flags().String("info-file", "", "Distribution info file (default from config)")
	releaseCmd.MarkFlagsMutuallyExclusive("release", "phase")

	rootCmd.AddCommand(
		bumpCmd,
		patchesCmd,
		subpackagesCmd,
		requiresCmd,
		changelogCmd,
		releaseCmd,
		historyCmd,
		restoreCmd,
		watchCmd,
	)
}
