package main

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/urfave/cli/v2"

	"boards_catalog_v1/internal/config"
	"boards_catalog_v1/internal/middleware"
	"boards_catalog_v1/internal/model"
)

// devtoken 为本地调试签发 Bearer Token，使用与服务相同的 jwt 配置
func main() {
	app := &cli.App{
		Name:  "devtoken",
		Usage: "issue a bearer token for local testing",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "config", Usage: "config file or directory"},
			&cli.StringFlag{Name: "user", Usage: "user id (uuid), random when empty"},
			&cli.StringFlag{Name: "email", Value: "dev@example.com"},
			&cli.StringFlag{Name: "role", Value: model.RoleAuthenticated, Usage: "authenticated | admin"},
			&cli.DurationFlag{Name: "ttl", Value: 24 * time.Hour},
		},
		Action: func(c *cli.Context) error {
			cfg, err := config.Load(c.String("config"))
			if err != nil {
				return err
			}

			userID := c.String("user")
			if userID == "" {
				userID = uuid.NewString()
			}
			if !model.IsUUID(userID) {
				return fmt.Errorf("user 必须是 UUID: %s", userID)
			}

			auth := middleware.NewAuthenticator(middleware.JWTConfig{
				SecretKey:      cfg.JWT.Secret,
				Issuer:         cfg.JWT.Issuer,
				AccessTokenTTL: c.Duration("ttl"),
			})
			token, err := auth.GenerateAccessToken(userID, c.String("email"), c.String("role"))
			if err != nil {
				return err
			}
			fmt.Fprintln(c.App.Writer, token)
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
