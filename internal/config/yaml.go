package config

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/gisquick/tilecache/internal/cache"
	"github.com/gisquick/tilecache/internal/dimension"
	"github.com/gisquick/tilecache/internal/grid"
	"github.com/gisquick/tilecache/internal/source"
	"github.com/gisquick/tilecache/internal/tile"
)

// fileDoc is the on-disk schema for -config=PATH (spec §6.1/§6.3): plain
// YAML, already a transitive dependency of the retrieved stack
// (gopkg.in/yaml.v3), promoted here to a direct import since no pack
// example wires a dedicated config-file format of its own.
type fileDoc struct {
	Grids  map[string]gridDoc  `yaml:"grids"`
	Sources map[string]sourceDoc `yaml:"sources"`
	Caches map[string]cacheDoc `yaml:"caches"`
	Tilesets map[string]tilesetDoc `yaml:"tilesets"`
	ImageFormats       map[string]string `yaml:"image_formats"`
	DefaultImageFormat string            `yaml:"default_image_format"`
}

type gridDoc struct {
	SRS         string    `yaml:"srs"`
	Extent      [4]float64 `yaml:"extent"`
	TileSize    [2]int    `yaml:"tile_size"`
	Origin      string    `yaml:"origin"` // bl, tl, br, tr
	Unit        string    `yaml:"unit"`   // m, degrees, ft
	Resolutions []float64 `yaml:"resolutions"`
}

type retryDoc struct {
	MaxTries   uint          `yaml:"max_tries"`
	MaxElapsed time.Duration `yaml:"max_elapsed"`
}

type sourceDoc struct {
	Type       string   `yaml:"type"` // http, fallback
	URL        string   `yaml:"url"`
	MapFile    string   `yaml:"mapfile"`
	Layers     string   `yaml:"layers"`
	Projection string   `yaml:"projection"`
	Retry      *retryDoc `yaml:"retry"`
	Fallback   []string `yaml:"fallback"` // names of other sources, tried in order
}

type compositeLinkDoc struct {
	Cache     string   `yaml:"cache"`
	ZoomRange [2]int   `yaml:"zoom_range"`
	Grids     []string `yaml:"grids"`
	DimName   string   `yaml:"dimension_name"`
	DimValue  string   `yaml:"dimension_value"`
}

type cacheDoc struct {
	Type string `yaml:"type"` // file, sqlite, redis, s3, composite, multitier

	// file / sqlite
	Path string `yaml:"path"`

	// redis
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Prefix   string `yaml:"prefix"`

	// s3
	Endpoint  string `yaml:"endpoint"`
	Bucket    string `yaml:"bucket"`
	AccessKey string `yaml:"access_key"`
	SecretKey string `yaml:"secret_key"`
	UseSSL    bool   `yaml:"use_ssl"`

	TileSize [2]int `yaml:"tile_size"`

	// composite
	Links []compositeLinkDoc `yaml:"links"`

	// multitier
	Tiers []string `yaml:"tiers"`
}

type tilesetDoc struct {
	Source     string   `yaml:"source"`
	Cache      string   `yaml:"cache"`
	Format     string   `yaml:"format"`
	Grids      []string `yaml:"grids"`
	MetaSize   [2]int   `yaml:"metasize"`
	MetaBuffer int      `yaml:"metabuffer"`
	ReadOnly   bool     `yaml:"read_only"`
	Expires    int      `yaml:"expires"`
	AutoExpire int      `yaml:"auto_expire"`
	DimensionAssembly        string `yaml:"dimension_assembly"` // none, stack, animate
	StoreDimensionAssemblies bool   `yaml:"store_dimension_assemblies"`
	KeyTemplate              string `yaml:"key_template"`
}

// Load parses a YAML configuration document and builds a validated Arena,
// the implementation of the "config=PATH" seeder flag (spec §6.3) and the
// server-side equivalent of spec §6.1.
func Load(log *zap.SugaredLogger, path string) (*Arena, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	var doc fileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	a := New()
	if doc.DefaultImageFormat != "" {
		a.DefaultImageFormat = doc.DefaultImageFormat
	}
	for name, mime := range doc.ImageFormats {
		a.ImageFormats[name] = mime
	}

	for name, gd := range doc.Grids {
		g, err := buildGrid(name, gd)
		if err != nil {
			return nil, err
		}
		a.AddGrid(g)
	}

	for name, sd := range doc.Sources {
		if sd.Type == "fallback" {
			continue // built in a second pass, once every referenced source exists
		}
		s, err := buildSource(log, sd)
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", name, err)
		}
		a.AddSource(name, s)
	}
	for name, sd := range doc.Sources {
		if sd.Type != "fallback" {
			continue
		}
		members := make([]source.Source, 0, len(sd.Fallback))
		for _, ref := range sd.Fallback {
			m, ok := a.Sources[ref]
			if !ok {
				return nil, fmt.Errorf("source %q: fallback member %q not defined", name, ref)
			}
			members = append(members, m)
		}
		a.AddSource(name, source.NewFallback(log, members...))
	}

	// Caches: file/sqlite/redis/s3 first, then composite/multitier which
	// reference other caches by name.
	for name, cd := range doc.Caches {
		if cd.Type == "composite" || cd.Type == "multitier" {
			continue
		}
		c, err := buildLeafCache(log, cd)
		if err != nil {
			return nil, fmt.Errorf("cache %q: %w", name, err)
		}
		a.AddCache(name, c)
	}
	for name, cd := range doc.Caches {
		switch cd.Type {
		case "composite":
			c, err := buildComposite(a, cd)
			if err != nil {
				return nil, fmt.Errorf("cache %q: %w", name, err)
			}
			a.AddCache(name, c)
		case "multitier":
			c, err := buildMultitier(a, cd)
			if err != nil {
				return nil, fmt.Errorf("cache %q: %w", name, err)
			}
			a.AddCache(name, c)
		}
	}

	for name, td := range doc.Tilesets {
		ts, err := buildTileset(a, name, td)
		if err != nil {
			return nil, fmt.Errorf("tileset %q: %w", name, err)
		}
		a.AddTileset(ts)
		if td.Source != "" {
			s, ok := a.Sources[td.Source]
			if !ok {
				return nil, fmt.Errorf("tileset %q: references unknown source %q", name, td.Source)
			}
			a.AddTilesetSource(name, s)
		}
		if td.Cache != "" {
			c, ok := a.Caches[td.Cache]
			if !ok {
				return nil, fmt.Errorf("tileset %q: references unknown cache %q", name, td.Cache)
			}
			a.AddTilesetCache(name, c)
		}
	}

	if err := a.Validate(); err != nil {
		return nil, err
	}
	return a, nil
}

func buildGrid(name string, gd gridDoc) (*grid.Grid, error) {
	origin := grid.OriginBL
	switch gd.Origin {
	case "tl":
		origin = grid.OriginTL
	case "br":
		origin = grid.OriginBR
	case "tr":
		origin = grid.OriginTR
	}
	unit := grid.UnitMeters
	switch gd.Unit {
	case "degrees":
		unit = grid.UnitDegrees
	case "ft":
		unit = grid.UnitFeet
	}
	tsx, tsy := 256, 256
	if gd.TileSize[0] > 0 {
		tsx, tsy = gd.TileSize[0], gd.TileSize[1]
	}
	return grid.New(name, grid.Extent(gd.Extent), tsx, tsy, origin, unit, gd.Resolutions)
}

func buildSource(log *zap.SugaredLogger, sd sourceDoc) (source.Source, error) {
	switch sd.Type {
	case "http", "":
		h := source.NewHTTP(log, &http.Client{Timeout: 30 * time.Second}, sd.URL, sd.MapFile, sd.Layers, sd.Projection)
		if sd.Retry != nil {
			return source.NewRetrying(log, h, sd.Retry.MaxTries, sd.Retry.MaxElapsed), nil
		}
		return h, nil
	default:
		return nil, fmt.Errorf("unknown source type %q", sd.Type)
	}
}

func buildLeafCache(log *zap.SugaredLogger, cd cacheDoc) (cache.Cache, error) {
	tsx, tsy := 256, 256
	if cd.TileSize[0] > 0 {
		tsx, tsy = cd.TileSize[0], cd.TileSize[1]
	}
	switch cd.Type {
	case "file", "":
		return cache.NewFile(log, cd.Path, tsx, tsy), nil
	case "sqlite":
		return cache.NewSQLite(log, cd.Path, tsx, tsy), nil
	case "redis":
		rdb := redis.NewClient(&redis.Options{Addr: cd.Addr, Password: cd.Password, DB: cd.DB})
		return cache.NewRedis(log, rdb, cd.Prefix, tsx, tsy), nil
	case "s3":
		client, err := minio.New(cd.Endpoint, &minio.Options{
			Creds:  credentials.NewStaticV4(cd.AccessKey, cd.SecretKey, ""),
			Secure: cd.UseSSL,
		})
		if err != nil {
			return nil, err
		}
		return cache.NewS3(log, client, cd.Bucket, cd.Prefix, tsx, tsy), nil
	default:
		return nil, fmt.Errorf("unknown cache type %q", cd.Type)
	}
}

func buildComposite(a *Arena, cd cacheDoc) (cache.Cache, error) {
	c := cache.NewComposite(nil)
	for _, ld := range cd.Links {
		child, ok := a.Caches[ld.Cache]
		if !ok {
			return nil, fmt.Errorf("link references unknown cache %q", ld.Cache)
		}
		var preds []cache.Predicate
		if ld.ZoomRange != [2]int{0, 0} {
			preds = append(preds, cache.ZoomRange(ld.ZoomRange[0], ld.ZoomRange[1]))
		}
		if len(ld.Grids) > 0 {
			preds = append(preds, cache.GridNameSet(ld.Grids...))
		}
		if ld.DimName != "" {
			preds = append(preds, cache.DimensionEquals(ld.DimName, ld.DimValue))
		}
		c.Add(child, preds...)
	}
	return c, nil
}

func buildMultitier(a *Arena, cd cacheDoc) (cache.Cache, error) {
	children := make([]cache.Cache, 0, len(cd.Tiers))
	for _, name := range cd.Tiers {
		child, ok := a.Caches[name]
		if !ok {
			return nil, fmt.Errorf("tier references unknown cache %q", name)
		}
		children = append(children, child)
	}
	return cache.NewMultitier(nil, children...), nil
}

func buildTileset(a *Arena, name string, td tilesetDoc) (*tile.Tileset, error) {
	links := make([]*grid.Link, 0, len(td.Grids))
	for _, gname := range td.Grids {
		g, ok := a.Grids[gname]
		if !ok {
			return nil, fmt.Errorf("references unknown grid %q", gname)
		}
		link, err := grid.NewLink(g, 0, g.NLevels(), -1, grid.OutOfZoomNotConfigured, nil, 0.01)
		if err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	metaX, metaY := 1, 1
	if td.MetaSize[0] > 0 {
		metaX, metaY = td.MetaSize[0], td.MetaSize[1]
	}
	assembly := dimension.AssemblyNone
	switch td.DimensionAssembly {
	case "stack":
		assembly = dimension.AssemblyStack
	case "animate":
		assembly = dimension.AssemblyAnimate
	}
	return &tile.Tileset{
		Name:                     name,
		Format:                   td.Format,
		GridLinks:                links,
		MetaSizeX:                metaX,
		MetaSizeY:                metaY,
		MetaBuffer:               td.MetaBuffer,
		ReadOnly:                 td.ReadOnly,
		Expires:                  td.Expires,
		AutoExpire:               td.AutoExpire,
		DimensionAssemblyType:    assembly,
		StoreDimensionAssemblies: td.StoreDimensionAssemblies,
		KeyTemplate:              td.KeyTemplate,
	}, nil
}
