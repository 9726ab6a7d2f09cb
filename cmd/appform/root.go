package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/goliatone/go-appform/internal/loader"
	"github.com/goliatone/go-appform/pkg/schema"
	"github.com/goliatone/go-appform/pkg/uploads"
)

const (
	keyConfig      = "config"
	keyVerbose     = "verbose"
	keySchema      = "schema"
	keyAttributes  = "attributes"
	keyAnswers     = "answers"
	keyAttachments = "attachments"
	keyUploadsFile = "uploads-file"
	keyMaxDepth    = "max-depth"
	keyOutput      = "output"
	keySanitize    = "sanitize"
	keyListen      = "listen"
	keyTimeout     = "timeout"
	keyAuthHeader  = "auth-header"

	defaultUploadsFile = ".appform/uploads.json"
)

// cli carries state shared by every command.
type cli struct {
	v      *viper.Viper
	out    io.Writer
	logger *zap.Logger
}

func newRootCmd(out io.Writer) *cobra.Command {
	app := &cli{v: viper.New(), out: out, logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "appform",
		Short: "Build, reshape and submit dynamic application forms",
		Long: `appform works with server defined application forms.

It builds the default entries tree of a form, reshapes saved answers back into
that tree, prepares submission payloads together with pending uploads, and can
walk an applicant through a form in the terminal.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return app.init(cmd)
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			_ = app.logger.Sync()
		},
	}

	flags := root.PersistentFlags()
	flags.String(keyConfig, "", "config file (default appform.{yaml,json} in . or $HOME/.appform)")
	flags.BoolP(keyVerbose, "v", false, "enable debug logging")
	flags.String(keySchema, "", "form schema document (path or URL)")
	flags.String(keyAttributes, "", "form attributes document holding the field type choices (path or URL)")
	flags.String(keyUploadsFile, defaultUploadsFile, "pending uploads store")
	flags.Int(keyMaxDepth, 0, "maximum section nesting (0 uses the default)")
	flags.StringP(keyOutput, "o", "", "output file (stdout if empty)")
	flags.Duration(keyTimeout, 30*time.Second, "timeout for remote documents")
	flags.String(keyAuthHeader, "", "Authorization header sent with remote document requests")
	_ = app.v.BindPFlags(flags)

	root.AddCommand(
		newBuildCmd(app),
		newReshapeCmd(app),
		newPrepareCmd(app),
		newFillCmd(app),
		newUploadsCmd(app),
		newServeCmd(app),
	)
	return root
}

func (c *cli) init(cmd *cobra.Command) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load .env: %w", err)
	}

	_ = c.v.BindPFlags(cmd.Flags())
	c.v.SetEnvPrefix("APPFORM")
	c.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	c.v.AutomaticEnv()

	if file := c.v.GetString(keyConfig); file != "" {
		c.v.SetConfigFile(file)
	} else {
		c.v.SetConfigName("appform")
		c.v.AddConfigPath(".")
		c.v.AddConfigPath("$HOME/.appform")
	}
	if err := c.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	config := zap.NewProductionConfig()
	config.OutputPaths = []string{"stderr"}
	if c.v.GetBool(keyVerbose) {
		config.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	logger, err := config.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	c.logger = logger
	if used := c.v.ConfigFileUsed(); used != "" {
		c.logger.Debug("config loaded", zap.String("file", used))
	}
	return nil
}

func (c *cli) loader() schema.Loader {
	opts := []loader.Option{
		loader.WithHTTP(c.v.GetDuration(keyTimeout)),
		loader.WithLogger(c.logger),
	}
	if header := c.v.GetString(keyAuthHeader); header != "" {
		opts = append(opts, loader.WithHeader("Authorization", header))
	}
	return loader.New(opts...)
}

func (c *cli) uploadsStore() *uploads.FileStore {
	return uploads.NewFileStore(c.v.GetString(keyUploadsFile), uploads.WithLogger(c.logger))
}

// source resolves the value of key. Optional keys yield the zero Source when
// unset.
func (c *cli) source(key string, required bool) (schema.Source, error) {
	src, err := schema.ParseSource(c.v.GetString(key))
	if err != nil {
		return schema.Source{}, fmt.Errorf("--%s: %w", key, err)
	}
	if src.IsZero() && required {
		return schema.Source{}, fmt.Errorf("--%s is required", key)
	}
	return src, nil
}

func (c *cli) load(ctx context.Context, key string) (schema.Document, error) {
	src, err := c.source(key, true)
	if err != nil {
		return schema.Document{}, err
	}
	return c.loader().Load(ctx, src)
}

func (c *cli) loadSchema(ctx context.Context) (schema.Form, schema.FieldTypes, error) {
	formDoc, err := c.load(ctx, keySchema)
	if err != nil {
		return schema.Form{}, nil, err
	}
	form, err := schema.ParseForm(formDoc)
	if err != nil {
		return schema.Form{}, nil, err
	}
	attrDoc, err := c.load(ctx, keyAttributes)
	if err != nil {
		return schema.Form{}, nil, err
	}
	types, err := schema.ParseFieldTypes(attrDoc)
	if err != nil {
		return schema.Form{}, nil, err
	}
	c.logger.Debug("schema loaded",
		zap.String("schema", formDoc.Location()),
		zap.Int("sections", len(form.Sections)),
		zap.Int("field_types", len(types)),
	)
	return form, types, nil
}

func (c *cli) writeJSON(value any) error {
	payload, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	payload = append(payload, '\n')
	if path := c.v.GetString(keyOutput); path != "" {
		if err := os.WriteFile(path, payload, 0o644); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		c.logger.Debug("output written", zap.String("file", path))
		return nil
	}
	_, err = c.out.Write(payload)
	return err
}
