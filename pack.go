package main

import (
	"math"
	"sort"
)

type packNode struct {
	x, y, r    float64
	value      float64
	index      int
	next, prev *packNode
}

// PackLayout places one circle per value without overlap and returns their
// centers in input order. Every circle gets the same radius, padded by
// half the padding while packing, and the pack is centered in size.
func PackLayout(values []float64, size Point, padding, radius float64) []Point {
	out := make([]Point, len(values))
	if len(values) == 0 {
		return out
	}
	nodes := make([]*packNode, len(values))
	for i, v := range values {
		nodes[i] = &packNode{value: v, index: i, r: radius + padding/2}
	}
	sort.SliceStable(nodes, func(i, j int) bool { return nodes[i].value < nodes[j].value })
	packSiblings(nodes)
	for _, n := range nodes {
		out[n.index] = Point{X: size.X/2 + n.x, Y: size.Y/2 + n.y}
	}
	return out
}

// packSiblings lays the nodes out along a front chain, then re-centers the
// result on the origin.
func packSiblings(nodes []*packNode) {
	n := len(nodes)
	if n == 0 {
		return
	}
	xMin, xMax := math.Inf(1), math.Inf(-1)
	yMin, yMax := math.Inf(1), math.Inf(-1)
	bound := func(c *packNode) {
		xMin = math.Min(c.x-c.r, xMin)
		xMax = math.Max(c.x+c.r, xMax)
		yMin = math.Min(c.y-c.r, yMin)
		yMax = math.Max(c.y+c.r, yMax)
	}
	for _, nd := range nodes {
		nd.next, nd.prev = nd, nd
	}

	a := nodes[0]
	a.x, a.y = -a.r, 0
	bound(a)

	if n > 1 {
		b := nodes[1]
		b.x, b.y = b.r, 0
		bound(b)

		if n > 2 {
			c := nodes[2]
			packPlace(a, b, c)
			bound(c)
			packInsert(a, c)
			a.prev = c
			packInsert(c, b)
			b = a.next

			for i := 3; i < n; i++ {
				c = nodes[i]
				packPlace(a, b, c)

				var j, k *packNode
				isect := false
				s1, s2 := 1, 1
				for j = b.next; j != b; j, s1 = j.next, s1+1 {
					if packIntersects(j, c) {
						isect = true
						break
					}
				}
				if isect {
					for k = a.prev; k != j.prev; k, s2 = k.prev, s2+1 {
						if packIntersects(k, c) {
							break
						}
					}
					if s1 < s2 || (s1 == s2 && b.r < a.r) {
						b = j
						packSplice(a, b)
					} else {
						a = k
						packSplice(a, b)
					}
					i--
					continue
				}
				packInsert(a, c)
				b = c
				bound(c)
			}
		}
	}

	cx, cy := (xMin+xMax)/2, (yMin+yMax)/2
	for _, nd := range nodes {
		nd.x -= cx
		nd.y -= cy
	}
}

func packInsert(a, b *packNode) {
	c := a.next
	a.next = b
	b.prev = a
	b.next = c
	c.prev = b
}

func packSplice(a, b *packNode) {
	a.next = b
	b.prev = a
}

func packIntersects(a, b *packNode) bool {
	dx, dy := b.x-a.x, b.y-a.y
	dr := a.r + b.r
	return 0.999*dr*dr > dx*dx+dy*dy
}

// packPlace puts c tangent to both a and b.
func packPlace(a, b, c *packNode) {
	db := a.r + c.r
	dx, dy := b.x-a.x, b.y-a.y
	if db != 0 && (dx != 0 || dy != 0) {
		da := b.r + c.r
		dc := dx*dx + dy*dy
		da *= da
		db *= db
		x := 0.5 + (db-da)/(2*dc)
		y := math.Sqrt(math.Max(0, 2*da*(db+dc)-(db-dc)*(db-dc)-da*da)) / (2 * dc)
		c.x = a.x + x*dx + y*dy
		c.y = a.y + x*dy - y*dx
		return
	}
	c.x = a.x + db
	c.y = a.y
}
