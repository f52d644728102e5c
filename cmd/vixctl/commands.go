// Copyright 2026 Canonical Ltd.
// Licensed under the AGPLv3, see LICENCE file for details.

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/juju/errors"
	"github.com/juju/loggo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/juju/vixdriver/internal/compute"
	"github.com/juju/vixdriver/internal/config"
	"github.com/juju/vixdriver/internal/hypervisor"
)

var logger = loggo.GetLogger("vix.cmd.vixctl")

const defaultConfigPath = "/etc/vix/vix.yaml"

// app carries the state shared by every sub-command.
type app struct {
	configPath  string
	logConfig   string
	showMetrics bool

	loadConfig func(path string) (config.Config, error)
	newDriver  NewDriverFunc

	registry *prometheus.Registry
	driver   Driver
}

func newApp() *app {
	return &app{
		loadConfig: config.Load,
		newDriver:  newDriver,
		registry:   prometheus.NewRegistry(),
	}
}

func (a *app) setUp(cmd *cobra.Command, _ []string) error {
	if err := loggo.ConfigureLoggers(a.logConfig); err != nil {
		return errors.Annotate(err, "configuring logging")
	}
	cfg, err := a.loadConfig(a.configPath)
	if err != nil {
		return errors.Trace(err)
	}
	logger.Debugf("using instances path %q", cfg.InstancesPath)
	a.driver, err = a.newDriver(cmd.Context(), cfg, a.registry)
	return errors.Trace(err)
}

func (a *app) tearDown(cmd *cobra.Command, _ []string) error {
	if !a.showMetrics {
		return nil
	}
	return writeMetrics(cmd.ErrOrStderr(), a.registry)
}

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:                "vixctl",
		Short:              "Manage instances on a local VMware host",
		SilenceUsage:       true,
		SilenceErrors:      true,
		PersistentPreRunE:  a.setUp,
		PersistentPostRunE: a.tearDown,
	}
	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", defaultConfigPath, "path of the driver configuration file")
	flags.StringVar(&a.logConfig, "log-config", "<root>=INFO", "logging configuration, as understood by loggo")
	flags.BoolVar(&a.showMetrics, "metrics", false, "print collected metrics to stderr on exit")

	root.AddCommand(
		a.spawnCommand(),
		a.nameCommand("destroy", "Destroy an instance and delete its files", a.destroy),
		a.listCommand(),
		a.infoCommand(),
		a.nameCommand("pause", "Freeze an instance in memory", a.action(Driver.Pause)),
		a.nameCommand("unpause", "Unfreeze a paused instance", a.action(Driver.Unpause)),
		a.nameCommand("suspend", "Suspend an instance to disk", a.action(Driver.Suspend)),
		a.nameCommand("resume", "Resume a suspended instance", a.action(Driver.Resume)),
		a.nameCommand("power-on", "Power an instance on", a.action(Driver.PowerOn)),
		a.nameCommand("power-off", "Power an instance off", a.action(Driver.PowerOff)),
		a.rebootCommand(),
		a.snapshotCommand(),
		a.vncCommand(),
		a.resourcesCommand(),
		a.statsCommand(),
	)
	return root
}

type nameFunc func(ctx context.Context, cmd *cobra.Command, name string) error

func (a *app) nameCommand(use, short string, run nameFunc) *cobra.Command {
	return &cobra.Command{
		Use:   use + " NAME",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), cmd, args[0])
		},
	}
}

// action adapts a power action of the driver to a sub-command.
func (a *app) action(f func(Driver, context.Context, string) error) nameFunc {
	return func(ctx context.Context, _ *cobra.Command, name string) error {
		return errors.Trace(f(a.driver, ctx, name))
	}
}

func (a *app) destroy(ctx context.Context, cmd *cobra.Command, name string) error {
	if err := a.driver.Destroy(ctx, name); err != nil {
		return errors.Trace(err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "destroyed %s\n", name)
	return nil
}

func (a *app) spawnCommand() *cobra.Command {
	var (
		inst compute.Instance
		nics []string
	)
	cmd := &cobra.Command{
		Use:   "spawn NAME",
		Short: "Create and start an instance from an image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			networks, err := parseNICs(nics)
			if err != nil {
				return errors.Trace(err)
			}
			inst.Name = args[0]
			if inst.DisplayName == "" {
				inst.DisplayName = inst.Name
			}
			if err := a.driver.Spawn(cmd.Context(), inst, networks); err != nil {
				return errors.Trace(err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "spawned %s\n", inst.Name)
			return nil
		},
	}
	cmd.Flags().StringVar(&inst.ImageRef, "image", "", "id of the base image")
	cmd.Flags().IntVar(&inst.VCPUs, "vcpus", 1, "number of virtual CPUs")
	cmd.Flags().IntVar(&inst.MemoryMB, "memory", 512, "memory in MB")
	cmd.Flags().StringVar(&inst.DisplayName, "display-name", "", "name shown by the hypervisor")
	cmd.Flags().StringArrayVar(&nics, "nic", nil, "network interface as MAC=SWITCH, may be repeated")
	_ = cmd.MarkFlagRequired("image")
	return cmd
}

// parseNICs turns MAC=SWITCH pairs into networks, keeping their order.
func parseNICs(nics []string) ([]hypervisor.Network, error) {
	var networks []hypervisor.Network
	for _, nic := range nics {
		mac, sw, ok := strings.Cut(nic, "=")
		if !ok || mac == "" || sw == "" {
			return nil, errors.NotValidf("nic %q, expected MAC=SWITCH", nic)
		}
		networks = append(networks, hypervisor.Network{MAC: mac, Switch: sw})
	}
	return networks, nil
}

func (a *app) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List running instances",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			names, err := a.driver.ListInstances(cmd.Context())
			if err != nil {
				return errors.Trace(err)
			}
			for _, name := range names {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}

func (a *app) infoCommand() *cobra.Command {
	return a.nameCommand("info", "Show the state of an instance", func(ctx context.Context, cmd *cobra.Command, name string) error {
		info, err := a.driver.GetInfo(ctx, name)
		if err != nil {
			return errors.Trace(err)
		}
		return writeYAML(cmd.OutOrStdout(), formatInfo(info))
	})
}

func (a *app) rebootCommand() *cobra.Command {
	var hard bool
	cmd := a.nameCommand("reboot", "Restart an instance", func(ctx context.Context, _ *cobra.Command, name string) error {
		rebootType := compute.RebootSoft
		if hard {
			rebootType = compute.RebootHard
		}
		return errors.Trace(a.driver.Reboot(ctx, name, rebootType))
	})
	cmd.Flags().BoolVar(&hard, "hard", false, "power cycle instead of asking the guest to restart")
	return cmd
}

func (a *app) snapshotCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "snapshot NAME EXPORT-NAME",
		Short: "Export the root disk of an instance as a new image",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			update := func(state, _ compute.TaskState) error {
				logger.Infof("snapshot of %s: %s", args[0], state)
				return nil
			}
			id, err := a.driver.Snapshot(cmd.Context(), args[0], args[1], update)
			if err != nil {
				return errors.Trace(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
}

func (a *app) vncCommand() *cobra.Command {
	return a.nameCommand("vnc", "Show where the remote display of an instance listens", func(ctx context.Context, cmd *cobra.Command, name string) error {
		console, err := a.driver.GetVNCConsole(ctx, name)
		if err != nil {
			return errors.Trace(err)
		}
		return writeYAML(cmd.OutOrStdout(), vncOutput{Host: console.Host, Port: console.Port})
	})
}

func (a *app) resourcesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "resources",
		Short: "Show the capacity of the host",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			res, err := a.driver.GetAvailableResource(cmd.Context(), "")
			if err != nil {
				return errors.Trace(err)
			}
			return writeYAML(cmd.OutOrStdout(), formatResources(res))
		},
	}
}

func (a *app) statsCommand() *cobra.Command {
	var refresh bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show host statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := a.driver.GetHostStats(cmd.Context(), refresh)
			if err != nil {
				return errors.Trace(err)
			}
			return writeYAML(cmd.OutOrStdout(), formatStats(stats))
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "recompute the statistics")
	return cmd
}
