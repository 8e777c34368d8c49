// Package rules decides move legality and captures on a board snapshot.
// Functions here never check whether the target cell is empty; callers do that.
package rules

import "goban/internal/domain/game"

// up, right, down, left
var directions = [4][2]int{{0, -1}, {1, 0}, {0, 1}, {-1, 0}}

type Group struct {
	Stones     []game.Stone
	HasLiberty bool
}

func NewVisited(size int) [][]bool {
	visited := make([][]bool, size)
	for x := range visited {
		visited[x] = make([]bool, size)
	}
	return visited
}

// ExploreGroup walks the stones of color connected to (sx, sy) breadth first.
// The start cell is treated as holding color whatever the snapshot says, so it can
// be used for a stone that is about to be placed. The walk does not stop at the
// first liberty: callers need the full membership.
func ExploreGroup(snap *game.Snapshot, visited [][]bool, color game.Color, sx, sy int) Group {
	var result Group
	size := snap.Size()

	queue := [][2]int{{sx, sy}}
	visited[sx][sy] = true

	for len(queue) > 0 {
		x, y := queue[0][0], queue[0][1]
		queue = queue[1:]
		result.Stones = append(result.Stones, game.Stone{Color: color, X: x, Y: y})

		for _, d := range directions {
			nx, ny := x+d[0], y+d[1]
			if nx < 0 || ny < 0 || nx >= size || ny >= size {
				continue
			}
			if visited[nx][ny] {
				continue
			}

			c, occupied := snap.Get(nx, ny).Color()
			if !occupied {
				result.HasLiberty = true
				continue
			}
			if c == color {
				visited[nx][ny] = true
				queue = append(queue, [2]int{nx, ny})
			}
		}
	}

	return result
}

// CapturedGroups returns the enemy groups left without liberties once placed is on the board,
// in neighbour scan order.
func CapturedGroups(snap *game.Snapshot, placed game.Stone) [][]game.Stone {
	size := snap.Size()
	visited := NewVisited(size)
	var captured [][]game.Stone

	visited[placed.X][placed.Y] = true
	enemy := placed.Color.Opponent()

	for _, d := range directions {
		nx, ny := placed.X+d[0], placed.Y+d[1]
		if nx < 0 || ny < 0 || nx >= size || ny >= size {
			continue
		}
		if visited[nx][ny] {
			continue
		}

		c, occupied := snap.Get(nx, ny).Color()
		if !occupied || c != enemy {
			continue
		}

		group := ExploreGroup(snap, visited, enemy, nx, ny)
		if !group.HasLiberty {
			captured = append(captured, group.Stones)
		}
	}

	return captured
}

// IsValidIgnoringCapture reports whether stone would have a liberty, either directly or
// through the friendly group it joins.
func IsValidIgnoringCapture(snap *game.Snapshot, stone game.Stone) bool {
	size := snap.Size()

	for _, d := range directions {
		nx, ny := stone.X+d[0], stone.Y+d[1]
		if nx < 0 || ny < 0 || nx >= size || ny >= size {
			continue
		}
		if snap.Get(nx, ny) == game.Empty {
			return true
		}
	}

	group := ExploreGroup(snap, NewVisited(size), stone.Color, stone.X, stone.Y)
	return group.HasLiberty
}

// IsValidStone rejects suicide but allows a liberty-less stone that captures.
func IsValidStone(snap *game.Snapshot, stone game.Stone) bool {
	if IsValidIgnoringCapture(snap, stone) {
		return true
	}
	return len(CapturedGroups(snap, stone)) > 0
}
