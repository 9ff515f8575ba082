// Copyright (c) 2024-2026 Multitech Systems, Inc.
// Author: Jason Reiss
// SPDX-License-Identifier: MIT

package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/MultiTechSystems/bitschema/codec"
	"github.com/MultiTechSystems/bitschema/def"
	"github.com/MultiTechSystems/bitschema/internal/logger"
)

const (
	envPrefix     = "BITSCHEMA"
	configName    = "bitschema"
	defaultOutput = "json"
	defaultBytes  = "hex"
	defaultLogLvl = "warn"
	defaultLogFmt = "text"
)

// app carries the configuration shared by all subcommands.
type app struct {
	v *viper.Viper
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	cmd := &cobra.Command{
		Use:   "bitschema",
		Short: "Compile bit layouts and decode or encode payloads with them",
		Long: `bitschema works with schemas that describe where each field of a binary
payload lives, down to the bit. Schemas are YAML or JSON (comments allowed),
the compact binary layout written by "bitschema compile", or a struct-style
format string given with --compact.

Settings are read from flags, BITSCHEMA_* environment variables and
bitschema.yaml in the working directory or $HOME/.config/bitschema.`,
		Version:       "0.1.0",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	setFlags(cmd.PersistentFlags())
	_ = a.v.BindPFlags(cmd.PersistentFlags())

	cmd.AddCommand(
		newValidateCmd(a),
		newDescribeCmd(a),
		newDecodeCmd(a),
		newEncodeCmd(a),
		newCompileCmd(a),
	)
	return cmd
}

func setFlags(flags *pflag.FlagSet) {
	flags.String("config", "", "Config file (default bitschema.yaml)")
	flags.String("schema", "", "Schema file, used instead of the first argument")
	flags.String("compact", "", "Struct-style format string, used instead of a schema file")
	flags.String("output", defaultOutput, "Output format: json, yaml or cbor")
	flags.String("bytes-format", defaultBytes, "Bytes rendering: hex, hex:upper, base64 or array")
	flags.String("log-level", defaultLogLvl, "Log level: debug, info, warn or error")
	flags.String("log-format", defaultLogFmt, "Log format: text or json")
}

func (a *app) init(cmd *cobra.Command) error {
	a.v.SetEnvPrefix(envPrefix)
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if err := a.readConfig(); err != nil {
		return err
	}

	return logger.Init(cmd.ErrOrStderr(), logger.Options{
		Level:  a.v.GetString("log-level"),
		Format: a.v.GetString("log-format"),
	})
}

func (a *app) readConfig() error {
	if path := a.v.GetString("config"); path != "" {
		a.v.SetConfigFile(path)
		if err := a.v.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file: %w", err)
		}
		return nil
	}

	a.v.SetConfigName(configName)
	a.v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		a.v.AddConfigPath(filepath.Join(home, ".config", configName))
	}
	if err := a.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config file: %w", err)
		}
	}
	return nil
}

// loadDef resolves the schema from --compact, --schema or the first
// argument, and returns the arguments left over.
func (a *app) loadDef(args []string) (*def.SchemaDef, []string, error) {
	if format := a.v.GetString("compact"); format != "" {
		sd, err := def.ParseCompact(format)
		if err != nil {
			return nil, nil, err
		}
		logger.Debug("schema loaded", "compact", format, "fields", len(sd.Fields))
		return sd, args, nil
	}

	path := a.v.GetString("schema")
	if path == "" {
		if len(args) == 0 {
			return nil, nil, errors.New("no schema given: pass a schema file, --schema or --compact")
		}
		path, args = args[0], args[1:]
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read schema: %w", err)
	}

	var sd *def.SchemaDef
	if bytes.HasPrefix(data, []byte(def.BinaryMagic)) {
		sd, err = def.ParseBinary(data)
	} else {
		sd, err = def.Parse(data)
	}
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", path, err)
	}

	logger.Debug("schema loaded", "path", path, "fields", len(sd.Fields))
	return sd, args, nil
}

func (a *app) loadCodec(args []string) (*codec.Codec, []string, error) {
	sd, rest, err := a.loadDef(args)
	if err != nil {
		return nil, nil, err
	}
	c, err := sd.Codec()
	if err != nil {
		return nil, nil, err
	}
	return c, rest, nil
}

func execute() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
