package app

import (
	"bytes"
	"fmt"
	"image/color"
	"math"
	"sort"

	"fyne.io/fyne/v2"

	"yashubustudio/biasmap/biasmap"
)

// Equirectangular world map cropped to the inhabited latitudes.
const (
	mapScale  = 4.0
	mapMinLat = -60.0
	mapMaxLat = 85.0
)

var noDataColor = color.NRGBA{R: 0xdd, G: 0xdd, B: 0xdd, A: 0xff}

type choroplethArea struct {
	Key   string
	Fill  color.NRGBA
	Shape biasmap.Shape
}

// choroplethAreas joins scored rows to outlines on the geometry key. Outlines
// without a score come first, in key order, so scored areas paint on top.
func choroplethAreas(triples []biasmap.Triple, shapes map[string]biasmap.Shape) []choroplethArea {
	scored := make(map[string]struct{}, len(triples))
	for _, t := range triples {
		scored[t.GeometryKey] = struct{}{}
	}
	keys := make([]string, 0, len(shapes))
	for k := range shapes {
		if _, ok := scored[k]; !ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	out := make([]choroplethArea, 0, len(shapes))
	for _, k := range keys {
		out = append(out, choroplethArea{Key: k, Fill: noDataColor, Shape: shapes[k]})
	}
	for _, t := range triples {
		shape, ok := shapes[t.GeometryKey]
		if !ok {
			continue
		}
		out = append(out, choroplethArea{Key: t.GeometryKey, Fill: probabilityColor(t.PositiveProbability), Shape: shape})
	}
	return out
}

func projectPoint(p biasmap.Point) (x, y float64) {
	lat := math.Max(mapMinLat, math.Min(mapMaxLat, p.Lat))
	return (p.Lon + 180) * mapScale, (mapMaxLat - lat) * mapScale
}

func renderChoroplethSVG(areas []choroplethArea) []byte {
	w := int(360 * mapScale)
	h := int((mapMaxLat - mapMinLat) * mapScale)
	var b bytes.Buffer
	fmt.Fprintf(&b, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+"\n", w, h, w, h)
	fmt.Fprintf(&b, `<rect x="0" y="0" width="%d" height="%d" fill="#ffffff"/>`+"\n", w, h)
	for _, a := range areas {
		fmt.Fprintf(&b, `<path fill="%s" fill-rule="evenodd" stroke="#ffffff" stroke-width="0.5" d="`, hexColor(a.Fill))
		for _, ring := range a.Shape {
			for i, p := range ring {
				x, y := projectPoint(p)
				cmd := "L"
				if i == 0 {
					cmd = "M"
				}
				fmt.Fprintf(&b, "%s%.1f %.1f ", cmd, x, y)
			}
			b.WriteString("Z ")
		}
		b.WriteString("\"/>\n")
	}
	b.WriteString("</svg>\n")
	return b.Bytes()
}

// choroplethResource renders the map as an SVG resource. fyne caches rasterized
// SVGs by resource name, so every render needs its own name.
func choroplethResource(name string, triples []biasmap.Triple, shapes map[string]biasmap.Shape) fyne.Resource {
	return fyne.NewStaticResource(name, renderChoroplethSVG(choroplethAreas(triples, shapes)))
}

func hexColor(c color.NRGBA) string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}
