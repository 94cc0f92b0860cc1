package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/kdudkov/tilecutter/pkg/model"
)

const closeDelay = time.Minute

type App struct {
	addr       string
	filesDir   string
	cacheDir   string
	layersFile string
	maxSize    int
	logger     *slog.Logger
	layers     *Layers
}

func NewApp(addr string) *App {
	return &App{
		layers:  NewLayers(),
		logger:  slog.Default(),
		addr:    addr,
		maxSize: 2048,
	}
}

func (app *App) addDefaultSources() error {
	res, err := model.ReadLayerDescriptions(app.layersFile)

	if err != nil {
		return err
	}

	for _, l := range res {
		p := model.NewProxy(l, app.logger, app.cacheDir)
		app.layers.Add(p)
	}

	return nil
}

// addFileSources rescans the files directory. Unchanged files keep their open layer,
// layers of removed or rewritten files are closed after closeDelay.
func (app *App) addFileSources() error {
	files, err := os.ReadDir(app.filesDir)
	if err != nil {
		return err
	}

	res := make(map[string]*model.Layer)

	for _, f := range files {
		if f.IsDir() || !isTileFile(f.Name()) {
			continue
		}

		p := filepath.Join(app.filesDir, f.Name())

		fi, err := os.Stat(p)
		if err != nil {
			app.logger.Error("invalid file "+p, "error", err)
			continue
		}

		if l, ok := app.layers.File(f.Name()); ok && !l.Changed(fi) {
			res[f.Name()] = l
			continue
		}

		l, err := model.NewLayer(f.Name(), p)
		if err != nil {
			app.logger.Error("db open error", "file", p, "error", err)
			continue
		}

		res[f.Name()] = l
		app.logger.Info(fmt.Sprintf("loaded file %s, name %s", f.Name(), l.GetName()))
	}

	for _, l := range app.layers.SetFiles(res) {
		app.logger.Info("unloaded file " + l.GetKey())

		// crops in flight may still read the old layer
		time.AfterFunc(closeDelay, func() {
			if err := l.Close(); err != nil {
				app.logger.Error("db close error", "error", err)
			}
		})
	}

	return nil
}

func isTileFile(name string) bool {
	return strings.HasSuffix(name, ".mbtiles") || strings.HasSuffix(name, ".sqlite")
}

func (app *App) Run() {
	if err := os.MkdirAll(app.cacheDir, 0777); err != nil {
		panic(err)
	}
	if err := os.MkdirAll(app.filesDir, 0777); err != nil {
		panic(err)
	}
	if err := app.addDefaultSources(); err != nil {
		panic(err)
	}

	if err := app.addFileSources(); err != nil {
		panic(err)
	}

	http := NewHttp(app)

	app.logger.Info("listening on " + app.addr)

	go func() {
		if err := http.Listen(app.addr); err != nil {
			panic(err)
		}
	}()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		panic(err)
	}

	defer watcher.Close()

	go app.watch(watcher)

	err = watcher.Add(app.filesDir)
	if err != nil {
		panic(err)
	}

	app.loop()

	if err := http.Shutdown(); err != nil {
		app.logger.Error("shutdown error", "error", err)
	}
}

func (app *App) watch(watcher *fsnotify.Watcher) {
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			// sqlite journals and other files change while tiles are written
			if !isTileFile(event.Name) {
				continue
			}

			app.logger.Info(fmt.Sprintf("event: %s", event))
			if event.Has(fsnotify.Write) {
				app.logger.Info("modified file: " + event.Name)
			}

			if err := app.addFileSources(); err != nil {
				app.logger.Error("error", slog.Any("error", err))
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			app.logger.Error("error", slog.Any("error", err))
		}
	}
}

func (app *App) loop() {
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)

	<-sigc
}

func main() {
	var filesDir = flag.String("files", "./data", "mbtiles path")
	var cacheDir = flag.String("cache", "./data", "cache path")
	var layersFile = flag.String("layers", "layers.yml", "layers description file")
	var addr = flag.String("addr", ":8888", "listen address")
	var maxSize = flag.Int("max-size", 2048, "max crop size")
	var debug = flag.Bool("debug", false, "")

	flag.Parse()

	var h slog.Handler
	if *debug {
		h = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug})
	} else {
		h = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}

	slog.SetDefault(slog.New(h))

	app := NewApp(*addr)
	app.filesDir = *filesDir
	app.cacheDir = *cacheDir
	app.layersFile = *layersFile
	app.maxSize = *maxSize
	app.Run()
}
