package rangequery

import "sort"

// WeightedWaveletTree indexes an append-only sequence of (height, weight)
// pairs and answers
//
//	RangeSumWithThreshold(t, l, r) = sum of weight[i] for l <= i < r
//	                                 where height[i] >= t
//
// in O(log H) where H is the number of distinct heights in the batch.
// Elements are appended in batches; each batch builds its own subtree over
// its own pivot-node range, and queries must stay within one batch.
type WeightedWaveletTree struct {
	elements     []waveletElement
	nodes        []waveletNode
	treeLocation []treeLocation
	layers       [][]elementInfo
}

type waveletElement struct {
	height int64
	weight int64
}

// waveletNode is an inorder entry of a batch's binary search tree over
// heights. pivotIndex is the layer-(depth+1) position where the node's right
// child range begins.
type waveletNode struct {
	pivotHeight int64
	pivotIndex  int
}

type treeLocation struct {
	nodeBegin     int
	nodeEnd       int
	sequenceFirst int
}

// elementInfo is the per-position payload of one layer: the prefix sum of
// weights within the enclosing node's range, and the mapping to the next
// layer (position of the element's image when it goes left, and whether it
// does).
type elementInfo struct {
	prefixSum int64
	leftIndex int
	isLeft    bool
}

// PushBack appends an element to the pending batch.
func (t *WeightedWaveletTree) PushBack(height, weight int64) {
	t.elements = append(t.elements, waveletElement{height: height, weight: weight})
}

// TreeSize returns the number of elements covered by built subtrees.
func (t *WeightedWaveletTree) TreeSize() int { return len(t.treeLocation) }

// Clear removes all elements and trees.
func (t *WeightedWaveletTree) Clear() {
	t.elements = t.elements[:0]
	t.nodes = t.nodes[:0]
	t.treeLocation = t.treeLocation[:0]
	for l := range t.layers {
		t.layers[l] = t.layers[l][:0]
	}
}

func msb(x int) int {
	p := 0
	for x > 1 {
		x >>= 1
		p++
	}
	return p
}

// MakeTreeFromNewElements builds the subtree for elements appended since the
// last call. After this call, every element of the new batch resolves to the
// batch's node range and base sequence index.
func (t *WeightedWaveletTree) MakeTreeFromNewElements() {
	beginIndex := len(t.treeLocation)
	endIndex := len(t.elements)
	if beginIndex >= endIndex {
		return
	}
	// The pivot heights of the batch's tree are the sorted unique heights,
	// traversed inorder.
	oldNodeSize := len(t.nodes)
	for i := beginIndex; i < endIndex; i++ {
		t.nodes = append(t.nodes, waveletNode{pivotHeight: t.elements[i].height, pivotIndex: -1})
	}
	batch := t.nodes[oldNodeSize:]
	sort.Slice(batch, func(i, j int) bool { return batch[i].pivotHeight < batch[j].pivotHeight })
	unique := oldNodeSize
	for i := oldNodeSize; i < len(t.nodes); i++ {
		if unique == oldNodeSize || t.nodes[unique-1].pivotHeight != t.nodes[i].pivotHeight {
			t.nodes[unique] = t.nodes[i]
			unique++
		}
	}
	t.nodes = t.nodes[:unique]
	newNodeSize := len(t.nodes)

	for len(t.treeLocation) < endIndex {
		t.treeLocation = append(t.treeLocation, treeLocation{
			nodeBegin:     oldNodeSize,
			nodeEnd:       newNodeSize,
			sequenceFirst: beginIndex,
		})
	}

	// 1 + ceil(log2(number of distinct heights)) layers are touched.
	numLayers := 2 + msb(newNodeSize-oldNodeSize-1)
	for len(t.layers) < numLayers {
		t.layers = append(t.layers, nil)
	}
	for l := 0; l < numLayers; l++ {
		for len(t.layers[l]) < endIndex {
			t.layers[l] = append(t.layers[l], elementInfo{leftIndex: -1})
		}
	}

	var fillSubtree func(layer, nodeBegin, nodeEnd, rangeBegin, rangeEnd int)
	fillSubtree = func(layer, nodeBegin, nodeEnd, rangeBegin, rangeEnd int) {
		var sum int64
		for i := rangeBegin; i < rangeEnd; i++ {
			sum += t.elements[i].weight
			t.layers[layer][i].prefixSum = sum
		}
		if nodeBegin+1 == nodeEnd {
			return
		}
		// More than one height in range: partition at the median pivot.
		nodeMid := nodeBegin + (nodeEnd-nodeBegin)/2
		pivotHeight := t.nodes[nodeMid].pivotHeight
		pivotIndex := rangeBegin
		for i := rangeBegin; i < rangeEnd; i++ {
			t.layers[layer][i].leftIndex = pivotIndex
			t.layers[layer][i].isLeft = t.elements[i].height < pivotHeight
			if t.layers[layer][i].isLeft {
				pivotIndex++
			}
		}
		t.nodes[nodeMid].pivotIndex = pivotIndex
		stablePartition(t.elements[rangeBegin:rangeEnd], pivotHeight)

		fillSubtree(layer+1, nodeBegin, nodeMid, rangeBegin, pivotIndex)
		fillSubtree(layer+1, nodeMid, nodeEnd, pivotIndex, rangeEnd)
	}
	fillSubtree(0, oldNodeSize, newNodeSize, beginIndex, endIndex)
}

// stablePartition reorders els so that all elements with height < pivot come
// first, preserving relative order in both groups.
func stablePartition(els []waveletElement, pivot int64) {
	var right []waveletElement
	write := 0
	for _, el := range els {
		if el.height < pivot {
			els[write] = el
			write++
		} else {
			right = append(right, el)
		}
	}
	copy(els[write:], right)
}

// rangeSum returns the weight sum of layer positions [first, last], given
// that the enclosing node's range starts at nodeElemBegin.
func rangeSum(layer []elementInfo, nodeElemBegin, first, last int) int64 {
	sum := layer[last].prefixSum
	if first != nodeElemBegin {
		sum -= layer[first-1].prefixSum
	}
	return sum
}

// RangeSumWithThreshold returns the sum of weights of elements in
// [beginIndex, endIndex) whose height is at least threshold. The range must
// be covered by a single batch, with no pending elements.
func (t *WeightedWaveletTree) RangeSumWithThreshold(threshold int64, beginIndex, endIndex int) int64 {
	if beginIndex >= endIndex {
		return 0
	}
	loc := t.treeLocation[beginIndex]
	nodeBegin, nodeEnd := loc.nodeBegin, loc.nodeEnd
	elemBegin := loc.sequenceFirst
	first, last := beginIndex, endIndex-1

	// O(1) when every height in the batch is below the threshold.
	if t.nodes[nodeEnd-1].pivotHeight < threshold {
		return 0
	}

	var sum int64
	minHeight := t.nodes[nodeBegin].pivotHeight
	for l := 0; first <= last; l++ {
		layer := t.layers[l]
		if threshold <= minHeight {
			// Threshold covers all elements of this node; O(1) when the
			// query's threshold is below every height.
			sum += rangeSum(layer, elemBegin, first, last)
			return sum
		}
		if nodeBegin+1 == nodeEnd {
			// Leaf with height below threshold.
			return sum
		}
		nodeMid := nodeBegin + (nodeEnd-nodeBegin)/2
		pivotHeight := t.nodes[nodeMid].pivotHeight
		pivotIndex := t.nodes[nodeMid].pivotIndex

		// Project [first, last] onto the right child.
		rightFirst := pivotIndex + first - layer[first].leftIndex
		rightLast := pivotIndex + last - layer[last].leftIndex
		if layer[last].isLeft {
			rightLast--
		}

		if threshold < pivotHeight {
			// The whole right child is above the threshold; add its subrange
			// and descend left.
			if rightFirst <= rightLast {
				sum += rangeSum(t.layers[l+1], pivotIndex, rightFirst, rightLast)
			}
			leftLast := layer[last].leftIndex
			if !layer[last].isLeft {
				leftLast--
			}
			first, last = layer[first].leftIndex, leftLast
			nodeEnd = nodeMid
		} else {
			first, last = rightFirst, rightLast
			nodeBegin = nodeMid
			elemBegin = pivotIndex
			minHeight = pivotHeight
		}
	}
	return sum
}
