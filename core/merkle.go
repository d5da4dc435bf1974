package core

import (
	"github.com/yiqi-017/powseal/crypto"
)

// merkleNode 叶子节点 left/right 为 nil；内部节点独占两个子节点
type merkleNode struct {
	hash  crypto.Digest
	left  *merkleNode
	right *merkleNode
}

func newLeaf(record []byte) *merkleNode {
	return &merkleNode{hash: crypto.Hash256(record)}
}

// newInternal 哈希 = H(left.hash ++ right.hash)
func newInternal(left, right *merkleNode) *merkleNode {
	return &merkleNode{
		hash:  crypto.HashConcat(left.hash[:], right.hash[:]),
		left:  left,
		right: right,
	}
}

func (n *merkleNode) isLeaf() bool {
	return n.left == nil && n.right == nil
}

func (n *merkleNode) depth() int {
	if n.isLeaf() {
		return 1
	}
	l, r := n.left.depth(), n.right.depth()
	if l > r {
		return l + 1
	}
	return r + 1
}

// MerkleTree 对有序记录列表构建的二叉哈希树，构建后不可变
type MerkleTree struct {
	root   *merkleNode
	leaves int
}

// NewMerkleTree 依据记录列表构建 Merkle 树；空列表返回 ErrNoRecords
func NewMerkleTree(records [][]byte) (*MerkleTree, error) {
	if len(records) == 0 {
		return nil, ErrNoRecords
	}

	nodes := make([]*merkleNode, len(records))
	for i, r := range records {
		nodes[i] = newLeaf(r)
	}

	return &MerkleTree{
		root:   buildTree(nodes),
		leaves: len(records),
	}, nil
}

// buildTree 每层从尾部两两弹出配对：先弹出的 A 作右子，后弹出的 B 作左子。
// 单数时剩下的最前一个节点原样进入下一层（排在该层末尾）。
// 该顺序决定根哈希，不能改成常见的从头配对。
func buildTree(nodes []*merkleNode) *merkleNode {
	for len(nodes) > 1 {
		next := make([]*merkleNode, 0, (len(nodes)+1)/2)
		for len(nodes) >= 2 {
			a := nodes[len(nodes)-1]
			b := nodes[len(nodes)-2]
			nodes = nodes[:len(nodes)-2]
			next = append(next, newInternal(b, a))
		}
		if len(nodes) == 1 {
			next = append(next, nodes[0])
		}
		nodes = next
	}
	return nodes[0]
}

// Root 返回根摘要
func (t *MerkleTree) Root() crypto.Digest {
	return t.root.hash
}

// LeafCount 返回叶子（记录）数量
func (t *MerkleTree) LeafCount() int {
	return t.leaves
}

// Depth 返回树高，单叶子树为 1
func (t *MerkleTree) Depth() int {
	return t.root.depth()
}
