package cmd

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func pathsCmd(a *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "paths",
		Aliases: []string{"pth"},
		Short:   "Manage path configurations",
		Long: `
A path connects the transfer ports of two configured chains. Linking a path
opens an UNORDERED ics721-1 channel between them; the channel ids are saved
back into the configuration file.`,
	}

	cmd.AddCommand(
		pathsListCmd(a),
		pathsNewCmd(a),
		pathsLinkCmd(a),
	)

	return cmd
}

func pathsListCmd(a *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"l"},
		Short:   "Print out configured paths",
		Args:    withUsage(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireConfig(); err != nil {
				return err
			}
			jsn, err := cmd.Flags().GetBool(flagJSON)
			if err != nil {
				return err
			}
			if jsn {
				bz, err := json.Marshal(a.Config.Paths)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(bz))
				return nil
			}

			names := make([]string, 0, len(a.Config.Paths))
			for name := range a.Config.Paths {
				names = append(names, name)
			}
			sort.Strings(names)
			for i, name := range names {
				p := a.Config.Paths[name]
				status := "✘"
				if p.Linked() {
					status = "✔"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%2d: %-20s -> chns(%s:%s) linked(%s)\n",
					i, name, p.Src.ChainID, p.Dst.ChainID, status)
			}
			return nil
		},
	}
	return jsonFlag(a.Viper, cmd)
}

func pathsNewCmd(a *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "new src_chain_id dst_chain_id path_name",
		Aliases: []string{"n"},
		Short:   "Create a new blank path to be used in linking two chains",
		Args:    withUsage(cobra.ExactArgs(3)),
		Example: strings.TrimSpace(fmt.Sprintf(`
$ %s paths new ics721-a ics721-b demo-path`, appName)),
		RunE: func(cmd *cobra.Command, args []string) error {
			src, dst, name := args[0], args[1], args[2]
			return a.OverwriteConfigOnTheFly(cmd, func(cfg *Config) error {
				if _, ok := cfg.Paths[name]; ok {
					return errPathExists(name)
				}
				cfg.Paths[name] = &PathConfig{
					Src: PathEndConfig{ChainID: src},
					Dst: PathEndConfig{ChainID: dst},
				}
				return nil
			})
		},
	}
	return cmd
}

func pathsLinkCmd(a *appState) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "link path_name",
		Aliases: []string{"lnk"},
		Short:   "Open a channel between the two chains of a path",
		Args:    withUsage(cobra.ExactArgs(1)),
		Example: strings.TrimSpace(fmt.Sprintf(`
$ %s paths link demo-path`, appName)),
		RunE: func(cmd *cobra.Command, args []string) error {
			o, err := a.openPaths(cmd, args[:1], true)
			if err != nil {
				return err
			}
			defer o.Close()

			p := o.Get(args[0])
			a.Log.Info("Path linked",
				zap.String("path", args[0]),
				zap.String("src", p.Src.String()),
				zap.String("dst", p.Dst.String()),
			)
			return nil
		},
	}
	return cmd
}
