package handler

import (
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"

	"github.com/nita-portal/nita/internal/config"
)

// AppName is the fiber application name.
const AppName = "NITA"

// FiberConfig is the fiber configuration shared by the server and handler tests.
func FiberConfig(cfg *config.Config) fiber.Config {
	return fiber.Config{
		ReadBufferSize: 8192,
		AppName:        AppName,
		CaseSensitive:  true,
		Prefork:        false,
		Immutable:      true,
		BodyLimit:      int(max(cfg.Media.MaxIconSize, 1<<20)) + 64<<10,
		JSONEncoder:    json.Marshal,
		JSONDecoder:    json.Unmarshal,
		ErrorHandler:   ErrorHandler(cfg.DevMode),
	}
}
