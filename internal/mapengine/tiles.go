package mapengine

import (
	"fmt"
	"math"
)

// TileDescriptor addresses one background tile and where it lands on screen.
// Descriptors are recomputed on every render pass and never cached.
type TileDescriptor struct {
	TileX      int     `json:"tile_x"`
	TileY      int     `json:"tile_y"`
	Zoom       int     `json:"zoom"`
	ScreenLeft float64 `json:"screen_left"`
	ScreenTop  float64 `json:"screen_top"`
}

// VisibleTiles enumerates the tiles covering a container of the given size
// centred on the viewport, plus a one-tile margin on each side. Tiles whose
// indices fall outside [0, 2^zoom) are dropped — there is no horizontal
// wraparound.
func VisibleTiles(v *Viewport, containerW, containerH int, tileSize int) []TileDescriptor {
	zoom := v.Zoom()
	center := Project(v.Center(), zoom, tileSize)

	centerTileX := int(math.Floor(center.X / float64(tileSize)))
	centerTileY := int(math.Floor(center.Y / float64(tileSize)))

	// Half-extent in tiles, rounded up, plus the margin tile.
	spanX := containerW/(2*tileSize) + 2
	spanY := containerH/(2*tileSize) + 2

	maxIndex := 1 << uint(zoom)

	tiles := make([]TileDescriptor, 0, (2*spanX+1)*(2*spanY+1))
	for ty := centerTileY - spanY; ty <= centerTileY+spanY; ty++ {
		if ty < 0 || ty >= maxIndex {
			continue
		}
		for tx := centerTileX - spanX; tx <= centerTileX+spanX; tx++ {
			if tx < 0 || tx >= maxIndex {
				continue
			}
			worldX := float64(tx * tileSize)
			worldY := float64(ty * tileSize)
			tiles = append(tiles, TileDescriptor{
				TileX:      tx,
				TileY:      ty,
				Zoom:       zoom,
				ScreenLeft: worldX - center.X + float64(containerW)/2,
				ScreenTop:  worldY - center.Y + float64(containerH)/2,
			})
		}
	}
	return tiles
}

// TileURL builds the slippy-map raster URL for a descriptor.
// baseURL is the tile host root, e.g. "https://tiles.example.org",
// style a path segment like "terrain".
func TileURL(baseURL, style string, t TileDescriptor) string {
	return fmt.Sprintf("%s/%s/%d/%d/%d.png", baseURL, style, t.Zoom, t.TileX, t.TileY)
}
