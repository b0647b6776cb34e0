package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"

	fyneapp "fyne.io/fyne/v2/app"

	"yashubustudio/biasmap/biasmap"
)

const fyneAppID = "studio.yashubu.biasmap"

// Run loads the catalog and the model, then starts the desktop UI.
func Run(configPath string) error {
	cfg, err := biasmap.LoadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	sink := newLogSink(os.Stderr)
	logger := log.New(sink, "", log.LstdFlags)

	oracle, err := biasmap.NewOracle(cfg, logger)
	if err != nil {
		return fmt.Errorf("init oracle: %w", err)
	}
	catalog := biasmap.NewCatalogLoader(cfg.Catalog, logger)
	svc, err := biasmap.NewService(context.Background(), catalog, oracle, cfg, logger)
	if err != nil {
		if c, ok := oracle.(io.Closer); ok {
			_ = c.Close()
		}
		return err
	}
	defer svc.Close()

	a := fyneapp.NewWithID(fyneAppID)
	u := buildUI(a, svc, sink)
	u.w.ShowAndRun()
	return nil
}
