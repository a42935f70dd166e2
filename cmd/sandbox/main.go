package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	"github.com/brettbedarf/sandboxfs/adapters"
	"github.com/brettbedarf/sandboxfs/config"
	"github.com/brettbedarf/sandboxfs/filesystem"
	"github.com/brettbedarf/sandboxfs/internal/repl"
	"github.com/brettbedarf/sandboxfs/internal/util"
	"github.com/brettbedarf/sandboxfs/mount"
	"github.com/brettbedarf/sandboxfs/server"
	"github.com/brettbedarf/sandboxfs/session"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

var version = "0.1.0"

var (
	configPath string
	seedPath   string
	verbose    int
	cfg        *config.Config
	seed       *filesystem.SnapshotNode // nil = builtin tree
)

func main() {
	rootCmd := &cobra.Command{
		Use:               "sandbox",
		Short:             "In-memory sandbox shell",
		Long:              "A simulated shell over an in-memory filesystem, usable as a REPL, a script runner, an HTTP gateway or a read-only FUSE mount.",
		SilenceUsage:      true,
		PersistentPreRunE: loadConfig,
		RunE:              runREPL,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML or JSON config file")
	rootCmd.PersistentFlags().StringVar(&seedPath, "seed", "", "Seed tree file path or http(s) URL (YAML or JSON)")
	rootCmd.PersistentFlags().IntVarP(&verbose, "verbose", "v", config.InfoVerbose,
		"Log verbosity level between 1 (error) and 5 (trace)")

	rootCmd.AddCommand(
		newREPLCmd(),
		newRunCmd(),
		newServeCmd(),
		newMountCmd(),
		newVersionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	var err error
	if configPath != "" {
		if cfg, err = config.NewConfigFromFile(configPath); err != nil {
			return err
		}
	} else {
		cfg = config.NewDefaultConfig()
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Merge(&config.ConfigOverride{LogLvl: util.Pointer(verbose)})
	}
	if cmd.Flags().Changed("seed") {
		cfg.Merge(&config.ConfigOverride{Seed: util.Pointer(seedPath)})
	}
	util.InitializeLogger(cfg.LogLvl)

	logger := util.GetLogger("main")
	logger.Debug().Str("config", configPath).Int("logLvl", cfg.LogLvl).Msg("Configuration loaded")

	if cfg.Seed != "" {
		if seed, err = adapters.DefaultRegistry().Load(cmd.Context(), cfg.Seed); err != nil {
			return fmt.Errorf("failed to load seed: %w", err)
		}
		logger.Info().Str("seed", cfg.Seed).Msg("Seed tree loaded")
	}
	return nil
}

// newSession starts a session over the loaded seed, or the builtin tree
func newSession() (*session.Session, error) {
	if seed == nil {
		return session.New(cfg), nil
	}
	fsys, err := filesystem.NewFSFromSnapshot(seed)
	if err != nil {
		return nil, err
	}
	return session.New(cfg, session.WithFileSystem(fsys)), nil
}

// signalContext is cancelled on SIGINT or SIGTERM
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func newREPLCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start an interactive session (default)",
		Args:  cobra.NoArgs,
		RunE:  runREPL,
	}
}

func runREPL(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	sess, err := newSession()
	if err != nil {
		return err
	}
	fd := int(os.Stdin.Fd())
	if !term.IsTerminal(fd) {
		return repl.New(sess, cfg, cmd.InOrStdin(), cmd.OutOrStdout()).Run(ctx)
	}

	oldState, err := term.MakeRaw(fd)
	if err != nil {
		return fmt.Errorf("failed to enter raw mode: %w", err)
	}
	defer term.Restore(fd, oldState) // nolint:errcheck

	rw := struct {
		io.Reader
		io.Writer
	}{os.Stdin, os.Stdout}
	return repl.NewTerminal(sess, cfg, rw).Run(ctx)
}

func newRunCmd() *cobra.Command {
	var (
		transcriptPath string
		format         string
		echo           bool
	)
	cmd := &cobra.Command{
		Use:   "run <script>",
		Short: "Run a script of commands, one per line (\"-\" reads stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			transcriptFormat, err := session.ParseFormat(format)
			if err != nil {
				return err
			}
			sess, err := runScript(cmd, args[0], echo)
			if err != nil {
				return err
			}
			if transcriptPath == "" {
				return nil
			}
			return writeTranscript(sess, transcriptPath, transcriptFormat)
		},
	}
	cmd.Flags().StringVarP(&transcriptPath, "transcript", "t", "", "Write the session transcript to this file")
	cmd.Flags().StringVarP(&format, "format", "f", string(session.YAMLFormat), "Transcript format: yaml or json")
	cmd.Flags().BoolVarP(&echo, "echo", "e", false, "Print the prompt and each command before its output")
	return cmd
}

// runScript feeds a script file through a fresh session, writing outputs to
// the command's stdout
func runScript(cmd *cobra.Command, path string, echo bool) (*session.Session, error) {
	logger := util.GetLogger("main.runScript")
	in := cmd.InOrStdin()
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		in = f
	}

	var opts []repl.Option
	if echo {
		opts = append(opts, repl.WithEcho())
	}
	sess, err := newSession()
	if err != nil {
		return nil, err
	}
	if err := repl.New(sess, cfg, in, cmd.OutOrStdout(), opts...).Run(cmd.Context()); err != nil {
		return nil, err
	}
	logger.Debug().Str("script", path).Int("entries", len(sess.History())).Msg("Script finished")
	return sess, nil
}

func writeTranscript(sess *session.Session, path string, format session.Format) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := session.WriteTranscript(f, sess.Transcript(), format); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func newServeCmd() *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve isolated sessions over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("listen") {
				cfg.Merge(&config.ConfigOverride{ListenAddr: util.Pointer(listen)})
			}
			ctx, cancel := signalContext()
			defer cancel()
			var opts []server.Option
			if seed != nil {
				opts = append(opts, server.WithSeed(seed))
			}
			return server.New(cfg, opts...).Serve(ctx)
		},
	}
	cmd.Flags().StringVarP(&listen, "listen", "l", config.DefaultListenAddr, "Address to listen on")
	return cmd
}

func newMountCmd() *cobra.Command {
	var (
		script string
		umount bool
	)
	cmd := &cobra.Command{
		Use:   "mount <dir>",
		Short: "Mount a read-only snapshot of the sandbox tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := util.GetLogger("main.mount")
			mnt := args[0]
			// Try unmount if requested; ignore the error when not mounted
			if umount {
				exec.Command("fusermount", "-u", mnt).Run() // nolint:errcheck
			}

			var (
				sess *session.Session
				err  error
			)
			if script != "" {
				sess, err = runScript(cmd, script, false)
			} else {
				sess, err = newSession()
			}
			if err != nil {
				return err
			}

			srv, err := mount.Mount(sess.Snapshot(), mnt, &cfg.MountOptions)
			if err != nil {
				return fmt.Errorf("failed to mount filesystem: %w", err)
			}

			ctx, cancel := signalContext()
			defer cancel()
			unmounted := make(chan struct{})
			go func() {
				select {
				case <-ctx.Done():
					logger.Info().Msg("Received signal, unmounting filesystem")
					if err := srv.Unmount(); err != nil {
						logger.Error().Err(err).Msg("Failed to unmount filesystem")
					}
				case <-unmounted:
				}
			}()
			srv.Wait()
			close(unmounted)
			logger.Info().Msg("Filesystem unmounted successfully")
			return nil
		},
	}
	cmd.Flags().StringVarP(&script, "script", "s", "", "Run this script before mounting")
	cmd.Flags().BoolVarP(&umount, "umount", "u", false,
		"Unmount the dir first if needed before mounting again. Useful for debuggers that don't exit properly.")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "sandbox %s\n", version)
		},
	}
}
