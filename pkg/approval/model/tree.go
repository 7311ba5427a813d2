package model

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bibbank/approval/pkg/approval"
)

// TreeNode is one node of a flattened binary decision tree. Samples with
// x[FeatureIdx] <= Threshold go left.
type TreeNode struct {
	FeatureIdx int     `json:"feature_idx"`
	Threshold  float64 `json:"threshold"`
	LeftChild  int     `json:"left_child"`
	RightChild int     `json:"right_child"`
	ClassLabel int     `json:"class_label"`
	IsLeaf     bool    `json:"is_leaf"`
	// Value holds the leaf's (reject, approve) class weights. Leaves without
	// weights make the tree label-only.
	Value []float64 `json:"value,omitempty"`
}

type treeArtifact struct {
	header
	Nodes []TreeNode `json:"nodes"`
}

// DecisionTree is a binary classification tree.
type DecisionTree struct {
	features approval.FeatureSchema
	nodes    []TreeNode
}

// NewDecisionTree validates the node table and builds a classifier.
func NewDecisionTree(features approval.FeatureSchema, nodes []TreeNode) (*DecisionTree, error) {
	if len(nodes) == 0 {
		return nil, errors.New("decision tree: no nodes")
	}
	for i, n := range nodes {
		if n.IsLeaf {
			if len(n.Value) != 0 && len(n.Value) != 2 {
				return nil, fmt.Errorf("decision tree: leaf %d has %d class weights, want 2", i, len(n.Value))
			}
			continue
		}
		if n.FeatureIdx < 0 || (features.Known() && n.FeatureIdx >= features.Len()) {
			return nil, fmt.Errorf("decision tree: node %d splits on feature %d", i, n.FeatureIdx)
		}
		if n.LeftChild <= i || n.LeftChild >= len(nodes) || n.RightChild <= i || n.RightChild >= len(nodes) {
			return nil, fmt.Errorf("decision tree: node %d has invalid children", i)
		}
	}
	return &DecisionTree{
		features: features,
		nodes:    append([]TreeNode(nil), nodes...),
	}, nil
}

func decodeTree(payload []byte) (*DecisionTree, error) {
	var a treeArtifact
	if err := json.Unmarshal(payload, &a); err != nil {
		return nil, fmt.Errorf("decode decision tree: %w", err)
	}
	features, err := a.schema()
	if err != nil {
		return nil, err
	}
	return NewDecisionTree(features, a.Nodes)
}

func (dt *DecisionTree) Features() approval.FeatureSchema {
	return dt.features
}

func (dt *DecisionTree) Predict(_ context.Context, v approval.FeatureVector) (int, error) {
	leaf, err := dt.leaf(v)
	if err != nil {
		return 0, err
	}
	return leaf.ClassLabel, nil
}

// PredictProba normalises the leaf's class weights. Leaves without weights
// return approval.ErrNoProbabilities.
func (dt *DecisionTree) PredictProba(_ context.Context, v approval.FeatureVector) ([2]float64, error) {
	leaf, err := dt.leaf(v)
	if err != nil {
		return [2]float64{}, err
	}
	if len(leaf.Value) == 0 {
		return [2]float64{}, approval.ErrNoProbabilities
	}
	total := leaf.Value[0] + leaf.Value[1]
	if total <= 0 {
		return [2]float64{}, fmt.Errorf("%w: leaf weights %v", approval.ErrInvalidProbabilities, leaf.Value)
	}
	return [2]float64{leaf.Value[0] / total, leaf.Value[1] / total}, nil
}

// leaf walks from the root. Children always have higher indices than their
// parent, so the walk terminates.
func (dt *DecisionTree) leaf(v approval.FeatureVector) (TreeNode, error) {
	if dt.features.Known() {
		if err := checkWidth(v, dt.features.Len()); err != nil {
			return TreeNode{}, err
		}
	}
	values := v.Values()
	idx := 0
	for {
		node := dt.nodes[idx]
		if node.IsLeaf {
			return node, nil
		}
		if node.FeatureIdx >= len(values) {
			return TreeNode{}, fmt.Errorf("%w: split on feature %d of %d", ErrFeatureMismatch, node.FeatureIdx, len(values))
		}
		if values[node.FeatureIdx] <= node.Threshold {
			idx = node.LeftChild
		} else {
			idx = node.RightChild
		}
	}
}
