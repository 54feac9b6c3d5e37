// Command scenesyncd serves the scene store over gRPC.
//
//	scenesyncd [-a addr] [-d dsn] [-s secret] [-m metrics-addr] [-c config.json]
//	scenesyncd token <owner-id> [-s secret] [-t validity]
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/dmitrijs2005/scenesync/internal/flagx"
	"github.com/dmitrijs2005/scenesync/internal/server"
	"github.com/dmitrijs2005/scenesync/internal/server/auth"
	"github.com/dmitrijs2005/scenesync/internal/server/config"
)

func main() {
	sub, args := flagx.Subcommand(os.Args[1:])

	switch sub {
	case "":
		cfg, err := config.LoadConfig(args)
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		ctx := context.Background()
		app, err := server.NewApp(ctx, cfg)
		if err != nil {
			log.Printf("%v", err)
			os.Exit(1)
		}
		app.Run(ctx)

	case "token":
		if len(args) == 0 || args[0] == "" {
			log.Fatal("usage: scenesyncd token <owner-id> [flags]")
		}
		cfg, err := config.LoadConfig(args[1:])
		if err != nil {
			log.Fatalf("config: %v", err)
		}
		tok, err := auth.GenerateToken(args[0], []byte(cfg.SecretKey), cfg.AccessTokenValidityDuration)
		if err != nil {
			log.Fatalf("token: %v", err)
		}
		fmt.Println(tok)

	default:
		log.Fatalf("unknown command %q", sub)
	}
}
