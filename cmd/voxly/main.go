// Command voxly はテキスト読み上げサービスのWebフロントエンドを起動する。
//
// 使い方:
//
//	voxly [serve|migrate|healthcheck]
package main

import (
	"fmt"
	"os"

	"github.com/hitoshi/voxly/internal/app"
)

func main() {
	if err := app.Run(os.Stdout, os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "voxly: %v\n", err)
		os.Exit(1)
	}
}
