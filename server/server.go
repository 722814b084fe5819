package server

import (
	"context"
	"errors"
	"strings"
	"time"

	"feedbridge/feeds"
	"feedbridge/twitter"
	"feedbridge/upstream"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// MediaResolver finds the best media source at request time
type MediaResolver interface {
	LargestImage(ctx context.Context, id string) (string, error)
	VideoSource(ctx context.Context, id string) (string, error)
	ProfilePicture(ctx context.Context, user string) (string, error)
}

type ServerConfig struct {
	// Pipelines for the Facebook and Twitter feeds
	Facebook *feeds.Pipeline
	Twitter  *feeds.Pipeline

	// Media resolves the targets of the media proxy endpoints
	Media MediaResolver
}

// statusFor maps pipeline errors onto HTTP responses
func statusFor(err error) (int, string) {
	var fiberErr *fiber.Error
	var upstreamErr *upstream.Error
	var parseErr *twitter.ParseError

	switch {
	case errors.As(err, &fiberErr):
		return fiberErr.Code, fiberErr.Message
	case errors.Is(err, feeds.ErrMissingSubject):
		return fiber.StatusBadRequest, "Missing user"
	case errors.Is(err, twitter.ErrEmptyTimeline):
		return fiber.StatusNotFound, "No entries found"
	case errors.As(err, &upstreamErr):
		return fiber.StatusBadRequest, upstreamErr.Message
	case errors.As(err, &parseErr):
		return fiber.StatusInternalServerError, "Unable to read upstream timeline"
	default:
		return fiber.StatusInternalServerError, "Internal Server Error"
	}
}

func errorHandler(c *fiber.Ctx, err error) error {
	status, message := statusFor(err)
	if status >= fiber.StatusInternalServerError {
		log.WithFields(log.Fields{
			"id":    c.GetRespHeader(fiber.HeaderXRequestID),
			"path":  c.Path(),
			"error": err,
		}).Error("Request failed")
	}
	return c.Status(status).SendString(message)
}

// accessLog logs every request on the way in and out, with the level chosen by status
func accessLog(c *fiber.Ctx) error {
	start := time.Now()
	id := c.GetRespHeader(fiber.HeaderXRequestID)

	log.WithFields(log.Fields{
		"id":         id,
		"ip":         c.IP(),
		"user_agent": c.Get(fiber.HeaderUserAgent),
		"method":     c.Method(),
		"path":       c.Path(),
		"query":      c.Queries(),
	}).Info("<--")

	if err := c.Next(); err != nil {
		if herr := c.App().ErrorHandler(c, err); herr != nil {
			_ = c.SendStatus(fiber.StatusInternalServerError)
		}
	}

	status := c.Response().StatusCode()
	entry := log.WithFields(log.Fields{
		"id":      id,
		"status":  status,
		"latency": time.Since(start),
	})
	switch {
	case status >= 500:
		entry.Error("-->")
	case status >= 400:
		entry.Warn("-->")
	default:
		entry.Info("-->")
	}
	return nil
}

func sendFeed(c *fiber.Ctx, pipeline *feeds.Pipeline, subject string) error {
	feed, cached, err := pipeline.Feed(c.UserContext(), subject)
	if err != nil {
		return err
	}

	rss, err := feeds.RenderRSS(feed)
	if err != nil {
		return err
	}

	if cached {
		c.Set("X-Cache", "HIT")
	} else {
		c.Set("X-Cache", "MISS")
	}
	c.Set(fiber.HeaderContentType, feeds.ContentType)
	return c.Status(fiber.StatusOK).SendString(rss)
}

func redirect(c *fiber.Ctx, target string, err error) error {
	if err != nil {
		return err
	}
	return c.Redirect(target, fiber.StatusFound)
}

// Server returns a fiber.App serving the feeds and the media proxy
func Server(config *ServerConfig) *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler:          errorHandler,
		DisableStartupMessage: true,
	})

	app.Use(requestid.New(requestid.Config{
		Generator: uuid.NewString,
	}))
	app.Use(accessLog)
	app.Use(compress.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,HEAD,OPTIONS",
	}))

	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.SendString("OK")
	})

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	app.Get("/rss", func(c *fiber.Ctx) error {
		return sendFeed(c, config.Facebook, strings.ToLower(strings.TrimSpace(c.Query("username"))))
	})

	app.Get("/twitter-rss/:username", func(c *fiber.Ctx) error {
		return sendFeed(c, config.Twitter, strings.ToLower(strings.TrimSpace(c.Params("username"))))
	})

	app.Get("/facebook/image/:id", func(c *fiber.Ctx) error {
		target, err := config.Media.LargestImage(c.UserContext(), c.Params("id"))
		return redirect(c, target, err)
	})

	app.Get("/facebook/video/:id", func(c *fiber.Ctx) error {
		target, err := config.Media.VideoSource(c.UserContext(), c.Params("id"))
		return redirect(c, target, err)
	})

	app.Get("/facebook/profile-picture/:user", func(c *fiber.Ctx) error {
		target, err := config.Media.ProfilePicture(c.UserContext(), c.Params("user"))
		return redirect(c, target, err)
	})

	return app
}
