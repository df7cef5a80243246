package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime/debug"

	"github.com/rollray/rollray/internal/kernel"
	"github.com/rollray/rollray/internal/log"
	"github.com/rollray/rollray/internal/model"
	"github.com/rollray/rollray/internal/pipeline"
	"gopkg.in/yaml.v3"

	"github.com/spf13/cobra"
)

var (
	userConfigPath string // /default/config/path/rollray on given OS
	configPath     string // actual config file used (if loaded)
	config         model.Config

	flagConfigFilePath string // value of --config flag
	flagVerbose        bool   // value of --verbose flag
)

func init() {
	d, err := os.UserConfigDir()
	if err != nil {
		panic(err)
	}
	userConfigPath = filepath.Join(d, "rollray")
}

func main() {
	// root flags
	rootCmd.PersistentFlags().StringVar(&flagConfigFilePath, "config", "", "Config file to load - default is rollray.yaml in current directory or in "+userConfigPath)
	rootCmd.PersistentFlags().BoolVar(&flagVerbose, "verbose", false, "verbose logging")

	// never print messages
	rootCmd.SilenceErrors = true

	// parse or create a config, setup logging
	rootCmd.PersistentPreRunE = initRollray

	rootCmd.AddCommand(renderCmd)
	rootCmd.AddCommand(checkCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		slog.Error("rollray failed", "err", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:          "rollray",
	Short:        "Renders piano roll videos by driving external render kernels",
	SilenceUsage: true,
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "render reads the configuration, renders all frames and encodes the video",
	RunE:  doRender,
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "check resolves the configured kernels and reports their runtimes",
	RunE:  doCheck,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "version provides version of a rollray",
	Run: func(cmd *cobra.Command, args []string) {
		info, ok := debug.ReadBuildInfo()
		if !ok {
			fmt.Println("rollray: version info not available")
			return
		}

		if configPath != "" {
			fmt.Printf("config:  %s\n", configPath)
		}
		fmt.Printf("rollray: %s\n", info.Main.Version)
		fmt.Printf("go:      %s\n", info.GoVersion)
		for _, s := range info.Settings {
			switch s.Key {
			case "vcs.revision":
				fmt.Printf("commit:  %s\n", s.Value)
			case "vcs.time":
				fmt.Printf("date:    %s\n", s.Value)
			case "vcs.modified":
				fmt.Printf("dirty:   %s\n", s.Value)
			}
		}
		fmt.Println()
	},
}

func doRender(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	attrs := slog.Group("rollray",
		slog.String("cmd", "render"),
		slog.Int("pid", os.Getpid()),
	)
	ctx = log.ContextAttrs(ctx, attrs)

	p, err := pipeline.New(ctx, config)
	if err != nil {
		return err
	}
	framesDir, err := p.Render(ctx)
	if err != nil {
		return err
	}

	outPath := filepath.Join(config.Output.Dir, config.Output.File)
	if err := p.Encoder().Encode(ctx, framesDir, outPath); err != nil {
		return err
	}
	slog.InfoContext(ctx, "video rendered", "path", outPath)
	return nil
}

func doCheck(cmd *cobra.Command, args []string) error {
	tc := pipeline.Toolchain(config.Kernels)

	entries, err := os.ReadDir(config.Kernels.Dir)
	if err != nil {
		return fmt.Errorf("reading kernels directory %s: %w", config.Kernels.Dir, err)
	}

	var failed bool
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		d, err := kernel.Resolve(filepath.Join(config.Kernels.Dir, e.Name()), tc)
		if err != nil {
			failed = true
			fmt.Printf("%s: %v\n", e.Name(), err)
			continue
		}
		fmt.Printf("%s: runtime=%s entry=%s\n", d.Name, d.Runtime, filepath.Base(d.Entry))
	}
	if failed {
		return fmt.Errorf("some kernels failed to resolve")
	}
	return nil
}

func initRollray(cmd *cobra.Command, _ []string) error {
	if envConfig, ok := os.LookupEnv("ROLLRAYCONFIG"); ok {
		configPath = envConfig
	} else if flagConfigFilePath != "" {
		configPath = flagConfigFilePath
	} else {
		for _, d := range []string{userConfigPath, "."} {
			path := filepath.Join(d, "rollray.yaml")
			if exists(path) {
				configPath = path
				break
			}
		}
	}

	// store default configuration
	if configPath == "" {
		config = model.DefaultConfig()
		configPath = filepath.Join(userConfigPath, "rollray.yaml")
		err := os.MkdirAll(filepath.Dir(configPath), 0755)
		if err != nil {
			return fmt.Errorf("creating directory %s: %w", filepath.Dir(configPath), err)
		}

		f, err := os.Create(configPath)
		if err != nil {
			return fmt.Errorf("creating file %s: %w", configPath, err)
		}
		defer func() {
			_ = f.Close()
		}()
		enc := yaml.NewEncoder(f)
		err = enc.Encode(config)
		if err != nil {
			return fmt.Errorf("storing configuration: %w", err)
		}
	} else {
		var err error
		f, err := os.Open(configPath)
		if err != nil {
			return fmt.Errorf("opening config file: %w", err)
		}
		defer func() {
			_ = f.Close()
		}()
		config, err = model.LoadConfig(f)
		if err != nil {
			for _, d := range model.CueErrDetails(err) {
				slog.Error(d)
			}
			return fmt.Errorf("parsing config: %w", err)
		}
	}

	// --verbose has a precedence over config file
	if flagVerbose {
		config.Service.Verbose = true
	}

	slog.SetDefault(log.New(config.Service.Verbose))

	slog.Debug("rollray run", "configPath", configPath)
	slog.Debug("rollray run", "config", config)
	return nil
}

func exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
