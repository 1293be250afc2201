package optimization

import (
	"fmt"
	"math"

	"github.com/kevin12369/smart-stock-insider/pkg/formulas"
)

// hrpSolver implements Hierarchical Risk Parity: cluster assets by
// correlation distance, reorder them quasi-diagonally, then split the budget
// top-down by inverse cluster variance. No matrix inversion, so it stays
// stable on near-singular covariance matrices where mean-variance breaks.
type hrpSolver struct{}

// cluster is a node of the single-linkage dendrogram. minLeaf gives a
// deterministic ordering for tie-breaks and left/right placement.
type cluster struct {
	left, right *cluster
	leaves      []int
	minLeaf     int
}

// solve produces HRP weights aligned to the covariance matrix order.
func (s *hrpSolver) solve(cov [][]float64) ([]float64, error) {
	n := len(cov)
	if n == 1 {
		return []float64{1.0}, nil
	}

	corr, err := formulas.CorrelationMatrixFromCovariance(cov)
	if err != nil {
		return nil, fmt.Errorf("correlation from covariance: %w", err)
	}
	dist := formulas.CorrelationToDistance(corr)

	order := s.quasiDiagonalOrder(s.buildDendrogram(dist))
	if len(order) != n {
		return nil, fmt.Errorf("invalid cluster order length %d for %d assets", len(order), n)
	}

	weights := make([]float64, n)
	for i := range weights {
		weights[i] = 1.0
	}
	s.bisect(weights, cov, order)

	normalize(weights)
	return weights, nil
}

// buildDendrogram runs agglomerative single-linkage clustering over the
// distance matrix. Ties break toward the lowest leaf indices so the tree is
// deterministic for identical inputs.
func (s *hrpSolver) buildDendrogram(dist [][]float64) *cluster {
	n := len(dist)
	nodes := make([]*cluster, n)
	for i := range nodes {
		nodes[i] = &cluster{leaves: []int{i}, minLeaf: i}
	}

	for len(nodes) > 1 {
		bestI, bestJ := 0, 1
		bestD := s.linkDistance(dist, nodes[0], nodes[1])
		for i := 0; i < len(nodes); i++ {
			for j := i + 1; j < len(nodes); j++ {
				d := s.linkDistance(dist, nodes[i], nodes[j])
				if d < bestD || (d == bestD && pairBefore(nodes[i], nodes[j], nodes[bestI], nodes[bestJ])) {
					bestD, bestI, bestJ = d, i, j
				}
			}
		}

		left, right := nodes[bestI], nodes[bestJ]
		if right.minLeaf < left.minLeaf {
			left, right = right, left
		}
		merged := &cluster{
			left:    left,
			right:   right,
			leaves:  append(append([]int{}, left.leaves...), right.leaves...),
			minLeaf: left.minLeaf,
		}

		next := nodes[:0]
		for k, node := range nodes {
			if k != bestI && k != bestJ {
				next = append(next, node)
			}
		}
		nodes = append(next, merged)
	}
	return nodes[0]
}

// linkDistance is the single-linkage distance: the minimum pairwise distance
// between the two clusters' leaves.
func (s *hrpSolver) linkDistance(dist [][]float64, a, b *cluster) float64 {
	best := math.Inf(1)
	for _, i := range a.leaves {
		for _, j := range b.leaves {
			if dist[i][j] < best {
				best = dist[i][j]
			}
		}
	}
	return best
}

func pairBefore(a1, b1, a2, b2 *cluster) bool {
	x1, y1 := orderedPair(a1.minLeaf, b1.minLeaf)
	x2, y2 := orderedPair(a2.minLeaf, b2.minLeaf)
	if x1 != x2 {
		return x1 < x2
	}
	return y1 < y2
}

func orderedPair(a, b int) (int, int) {
	if b < a {
		return b, a
	}
	return a, b
}

// quasiDiagonalOrder flattens the dendrogram left-to-right, placing
// correlated assets adjacently.
func (s *hrpSolver) quasiDiagonalOrder(node *cluster) []int {
	if node == nil {
		return nil
	}
	if node.left == nil && node.right == nil {
		return []int{node.leaves[0]}
	}
	return append(s.quasiDiagonalOrder(node.left), s.quasiDiagonalOrder(node.right)...)
}

// bisect recursively splits the ordered assets in half and allocates the
// current budget inversely to each half's variance.
func (s *hrpSolver) bisect(weights []float64, cov [][]float64, order []int) {
	if len(order) <= 1 {
		return
	}
	mid := len(order) / 2
	left, right := order[:mid], order[mid:]

	vLeft := s.clusterVariance(cov, left)
	vRight := s.clusterVariance(cov, right)

	alpha := 0.5
	if vLeft+vRight > 0 {
		alpha = 1.0 - vLeft/(vLeft+vRight)
	}
	alpha = math.Max(0.0, math.Min(1.0, alpha))

	for _, i := range left {
		weights[i] *= alpha
	}
	for _, i := range right {
		weights[i] *= 1.0 - alpha
	}

	s.bisect(weights, cov, left)
	s.bisect(weights, cov, right)
}

// clusterVariance is the variance of the inverse-variance portfolio over the
// cluster's members.
func (s *hrpSolver) clusterVariance(cov [][]float64, members []int) float64 {
	if len(members) == 0 {
		return 0
	}
	if len(members) == 1 {
		return math.Max(cov[members[0]][members[0]], 0)
	}

	ivp := make([]float64, len(members))
	sumInv := 0.0
	for k, i := range members {
		v := math.Max(cov[i][i], 1e-12)
		ivp[k] = 1.0 / v
		sumInv += ivp[k]
	}
	for k := range ivp {
		ivp[k] /= sumInv
	}

	variance := 0.0
	for a, i := range members {
		for b, j := range members {
			variance += ivp[a] * cov[i][j] * ivp[b]
		}
	}
	return math.Max(variance, 0)
}
