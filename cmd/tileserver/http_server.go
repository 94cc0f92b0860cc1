package main

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"github.com/kdudkov/tilecutter/pkg/cutter"
	"github.com/kdudkov/tilecutter/pkg/mapper"
	"github.com/kdudkov/tilecutter/pkg/model"
)

func NewHttp(app *App) *fiber.App {
	f := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		EnablePrintRoutes:     false,
		ErrorHandler:          errorHandler,
	})

	f.Use(logger.New(logger.Config{
		Format: "[${ip}]:${port} ${status} - ${method} ${path} ${queryParams}\n",
	}))

	f.Use(cors.New(cors.Config{
		AllowOrigins: "*",
	}))

	f.Get("/layers", getLayersHandler(app))
	f.Get("/tiles/:name/:zoom/:x/:y", getTileHandler(app))
	f.Get("/crop/:name", getCropHandler(app))

	return f
}

func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	var e *fiber.Error
	switch {
	case errors.As(err, &e):
		code = e.Code
	case errors.Is(err, mapper.ErrInvalidCoordinate):
		code = fiber.StatusBadRequest
	case errors.Is(err, cutter.ErrIncomplete):
		code = fiber.StatusBadGateway
	}

	return c.Status(code).SendString(err.Error())
}

func getLayersHandler(app *App) func(c *fiber.Ctx) error {
	return func(c *fiber.Ctx) error {
		return c.JSON(app.getLayers())
	}
}

func (app *App) getLayers() []map[string]any {
	list := app.layers.List()
	r := make([]map[string]any, 0, len(list))

	for _, l := range list {
		r = append(r, map[string]any{
			"url":      "/tiles/" + url.QueryEscape(l.GetKey()) + "/{z}/{x}/{y}",
			"crop":     "/crop/" + url.QueryEscape(l.GetKey()) + "?lat={lat}&lon={lon}&zoom={z}&size={size}",
			"min_zoom": l.GetMinZoom(),
			"max_zoom": l.GetMaxZoom(),
			"name":     l.GetName(),
			"file":     l.IsFile(),
		})
	}

	return r
}

func (app *App) getLayer(c *fiber.Ctx) (model.Source, error) {
	name, _ := url.QueryUnescape(c.Params("name"))

	layer, ok := app.layers.Get(name)

	if !ok {
		return nil, fiber.NewError(fiber.StatusNotFound, fmt.Sprintf("layer %s is not found", name))
	}

	return layer, nil
}

func getTileHandler(app *App) func(c *fiber.Ctx) error {
	return func(c *fiber.Ctx) error {
		var err error
		var zoom, x, y int

		if zoom, err = c.ParamsInt("zoom"); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "error: invalid zoom value")
		}

		if x, err = c.ParamsInt("x"); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "error: invalid x value")
		}

		if y, err = c.ParamsInt("y"); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "error: invalid y value")
		}

		layer, err := app.getLayer(c)
		if err != nil {
			return err
		}

		data, err := layer.GetTile(c.Context(), zoom, x, y)

		if err != nil {
			app.logger.Error("error getting tile", "error", err)
			return err
		}

		if data != nil {
			c.Set("Content-Type", layer.GetContentType())
			_, err := c.Write(data)
			if err != nil {
				app.logger.Error("error writing response", "error", err)
			}

			return err
		}

		return c.Status(fiber.StatusNotFound).SendString("not found")
	}
}

// getCropHandler returns a jpeg centered on lat, lon. Blank tiles are listed in the X-Tile-Warnings header
// as z/x/y separated by commas.
func getCropHandler(app *App) func(c *fiber.Ctx) error {
	return func(c *fiber.Ctx) error {
		layer, err := app.getLayer(c)
		if err != nil {
			return err
		}

		lat, err := strconv.ParseFloat(c.Query("lat"), 64)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "error: invalid lat value")
		}

		lon, err := strconv.ParseFloat(c.Query("lon"), 64)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "error: invalid lon value")
		}

		size := c.QueryInt("size", 512)
		if size <= 0 || size > app.maxSize {
			return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("error: size must be in 1-%d", app.maxSize))
		}

		zoom := c.QueryInt("zoom", min(15, layer.GetMaxZoom()))
		if zoom < layer.GetMinZoom() || zoom > layer.GetMaxZoom() {
			return fiber.NewError(fiber.StatusBadRequest, fmt.Sprintf("error: zoom must be in %d-%d", layer.GetMinZoom(), layer.GetMaxZoom()))
		}

		cut, err := cutter.New(layer, cutter.Options{
			Zoom:            zoom,
			Size:            size,
			TileConcurrency: 4,
			Strict:          c.QueryBool("strict", false),
		}, app.logger)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		res, err := cut.Cut(c.Context(), "crop", model.LatLon{Lat: lat, Lon: lon})
		if err != nil {
			return err
		}

		var buf bytes.Buffer
		if err := imaging.Encode(&buf, res.Image, imaging.JPEG, imaging.JPEGQuality(80)); err != nil {
			return err
		}

		c.Set("Content-Type", "image/jpeg")
		c.Set("X-Tile-Shift", res.Shift.String())
		if blank := blankTiles(res.Warnings); len(blank) > 0 {
			c.Set("X-Tile-Warnings", strings.Join(blank, ","))
		}

		return c.Send(buf.Bytes())
	}
}

func blankTiles(warnings []error) []string {
	res := make([]string, 0, len(warnings))

	for _, w := range warnings {
		var te *model.TileError
		if errors.As(w, &te) {
			res = append(res, te.Tile.String())
		}
	}

	sort.Strings(res)

	return res
}
