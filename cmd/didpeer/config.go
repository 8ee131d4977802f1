package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/dep2p/go-didpeer/config"
)

var configCommand = &cli.Command{
	Name:  "config",
	Usage: "配置文件管理",
	Subcommands: []*cli.Command{
		{
			Name:      "init",
			Usage:     "写出默认配置",
			ArgsUsage: "<path>",
			Flags: []cli.Flag{
				&cli.BoolFlag{Name: "force", Usage: "覆盖已存在的文件"},
			},
			Action: configInit,
		},
		{
			Name:      "check",
			Usage:     "加载并校验配置文件",
			ArgsUsage: "<path>",
			Action:    configCheck,
		},
	},
}

func configInit(ctx *cli.Context) error {
	path := ctx.Args().First()
	if path == "" {
		return errors.New("缺少配置文件路径")
	}
	if _, err := os.Stat(path); err == nil && !ctx.Bool("force") {
		return fmt.Errorf("%s 已存在（使用 --force 覆盖）", path)
	}
	if err := config.NewConfig().SaveFile(path); err != nil {
		return err
	}
	fmt.Fprintf(ctx.App.Writer, "已写入默认配置: %s\n", path)
	return nil
}

func configCheck(ctx *cli.Context) error {
	path := ctx.Args().First()
	if path == "" {
		return errors.New("缺少配置文件路径")
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	fmt.Fprintln(ctx.App.Writer, "配置有效")
	return nil
}

// loadConfig 读取全局 --config，并应用日志覆盖项
func loadConfig(ctx *cli.Context) (*config.Config, error) {
	cfg := config.NewConfig()
	if path := ctx.String(configFlag.Name); path != "" {
		loaded, err := config.LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}
	if lvl := ctx.String(logLevelFlag.Name); lvl != "" {
		cfg.Log.Level = lvl
	}
	if f := ctx.String(logFileFlag.Name); f != "" {
		cfg.Log.File = f
	}
	return cfg, nil
}
