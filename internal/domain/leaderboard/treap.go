package leaderboard

import "math/rand/v2"

// Treap ordered by rating DESC, then player id ASC. "less" means ranks
// earlier, so an in-order walk yields the board from best to worst.

type node struct {
	id     string
	rating float64
	prio   uint64
	left   *node
	right  *node
	size   int
}

func nsize(n *node) int {
	if n == nil {
		return 0
	}
	return n.size
}

func fix(n *node) {
	if n != nil {
		n.size = 1 + nsize(n.left) + nsize(n.right)
	}
}

func less(aRating float64, aID string, bRating float64, bID string) bool {
	if aRating != bRating {
		return aRating > bRating
	}
	return aID < bID
}

func rotateRight(y *node) *node {
	x := y.left
	y.left = x.right
	x.right = y
	fix(y)
	fix(x)
	return x
}

func rotateLeft(x *node) *node {
	y := x.right
	x.right = y.left
	y.left = x
	fix(x)
	fix(y)
	return y
}

func insert(n *node, id string, rating float64, rng *rand.Rand) *node {
	if n == nil {
		return &node{id: id, rating: rating, prio: rng.Uint64(), size: 1}
	}
	if less(rating, id, n.rating, n.id) {
		n.left = insert(n.left, id, rating, rng)
		if n.left.prio > n.prio {
			n = rotateRight(n)
		}
	} else {
		n.right = insert(n.right, id, rating, rng)
		if n.right.prio > n.prio {
			n = rotateLeft(n)
		}
	}
	fix(n)
	return n
}

func remove(n *node, id string, rating float64) *node {
	if n == nil {
		return nil
	}
	switch {
	case n.id == id && n.rating == rating:
		if n.left == nil {
			return n.right
		}
		if n.right == nil {
			return n.left
		}
		if n.left.prio > n.right.prio {
			n = rotateRight(n)
			n.right = remove(n.right, id, rating)
		} else {
			n = rotateLeft(n)
			n.left = remove(n.left, id, rating)
		}
	case less(rating, id, n.rating, n.id):
		n.left = remove(n.left, id, rating)
	default:
		n.right = remove(n.right, id, rating)
	}
	fix(n)
	return n
}

// countAbove returns how many nodes have a rating strictly above rating.
func countAbove(n *node, rating float64) int {
	count := 0
	for n != nil {
		if n.rating > rating {
			count += nsize(n.left) + 1
			n = n.right
		} else {
			n = n.left
		}
	}
	return count
}

// collect appends up to limit nodes in rank order.
func collect(n *node, limit int, out *[]*node) {
	if n == nil || len(*out) >= limit {
		return
	}
	collect(n.left, limit, out)
	if len(*out) < limit {
		*out = append(*out, n)
	}
	collect(n.right, limit, out)
}
