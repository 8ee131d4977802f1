// Package main 提供 didpeer 命令行入口
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/dep2p/go-didpeer"
	"github.com/dep2p/go-didpeer/pkg/lib/log"
)

var logger = log.Logger("didpeer/cmd")

var (
	configFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "配置文件路径（JSON）",
		EnvVars: []string{"DIDPEER_CONFIG"},
	}
	logLevelFlag = &cli.StringFlag{
		Name:  "log-level",
		Usage: "日志级别 (debug/info/warn/error)",
	}
	logFileFlag = &cli.StringFlag{
		Name:  "log-file",
		Usage: "日志文件路径（按大小轮转）",
	}
)

func newApp() *cli.App {
	return &cli.App{
		Name:    "didpeer",
		Usage:   "基于 gossip 的 DID 认证节点发现",
		Version: didpeer.VersionInfo(),
		Flags:   []cli.Flag{configFlag, logLevelFlag, logFileFlag},
		Commands: []*cli.Command{
			demoCommand,
			configCommand,
			versionCommand,
		},
	}
}

var versionCommand = &cli.Command{
	Name:  "version",
	Usage: "显示版本信息",
	Action: func(ctx *cli.Context) error {
		fmt.Fprintln(ctx.App.Writer, didpeer.VersionInfo())
		return nil
	},
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		os.Exit(1)
	}
}
