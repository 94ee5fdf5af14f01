package similarity

type block struct {
	a, b, size int
}

type matcher struct {
	a, b []rune
	b2j  map[rune][]int
}

func newMatcher(a, b []rune) *matcher {
	m := &matcher{a: a, b: b, b2j: make(map[rune][]int)}
	for j, r := range b {
		m.b2j[r] = append(m.b2j[r], j)
	}
	return m
}

func (m *matcher) ratio() float64 {
	total := len(m.a) + len(m.b)
	if total == 0 {
		return 1.0
	}
	matches := 0
	for _, blk := range m.matchingBlocks() {
		matches += blk.size
	}
	return 2.0 * float64(matches) / float64(total)
}

// longestMatch finds the longest block a[i:i+k] == b[j:j+k] inside the given
// bounds, preferring the smallest i and then the smallest j on ties.
func (m *matcher) longestMatch(alo, ahi, blo, bhi int) block {
	besti, bestj, bestSize := alo, blo, 0

	j2len := map[int]int{}
	for i := alo; i < ahi; i++ {
		next := map[int]int{}
		for _, j := range m.b2j[m.a[i]] {
			if j < blo {
				continue
			}
			if j >= bhi {
				break
			}
			k := j2len[j-1] + 1
			next[j] = k
			if k > bestSize {
				besti, bestj, bestSize = i-k+1, j-k+1, k
			}
		}
		j2len = next
	}

	return block{a: besti, b: bestj, size: bestSize}
}

func (m *matcher) matchingBlocks() []block {
	type span struct{ alo, ahi, blo, bhi int }

	var blocks []block
	stack := []span{{0, len(m.a), 0, len(m.b)}}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		blk := m.longestMatch(s.alo, s.ahi, s.blo, s.bhi)
		if blk.size == 0 {
			continue
		}
		blocks = append(blocks, blk)
		if s.alo < blk.a && s.blo < blk.b {
			stack = append(stack, span{s.alo, blk.a, s.blo, blk.b})
		}
		if blk.a+blk.size < s.ahi && blk.b+blk.size < s.bhi {
			stack = append(stack, span{blk.a + blk.size, s.ahi, blk.b + blk.size, s.bhi})
		}
	}
	return blocks
}
