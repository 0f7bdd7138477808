package dag

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func n(id string, deps ...string) Node {
	return Node{ID: id, Dependencies: deps}
}

func TestValidateDependencies(t *testing.T) {
	tests := []struct {
		name  string
		nodes []Node
		want  bool
	}{
		{name: "空输入", nodes: nil, want: true},
		{name: "无依赖", nodes: []Node{n("A"), n("B"), {ID: "C", Dependencies: []string{}}}, want: true},
		{name: "线性链", nodes: []Node{n("A", "B"), n("B", "C"), n("C")}, want: true},
		{name: "互相依赖仍然可解析", nodes: []Node{n("A", "B"), n("B", "A")}, want: true},
		{name: "自依赖可解析", nodes: []Node{n("A", "A")}, want: true},
		{name: "悬空依赖", nodes: []Node{n("A", "B"), n("B", "X")}, want: false},
		{name: "空字符串依赖不存在", nodes: []Node{n("A", "")}, want: false},
		{name: "重复依赖", nodes: []Node{n("A", "B", "B"), n("B")}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ValidateDependencies(tt.nodes))
		})
	}
}

func TestHasCircularDependencies(t *testing.T) {
	tests := []struct {
		name  string
		nodes []Node
		want  bool
	}{
		{name: "无依赖", nodes: []Node{n("A"), n("B")}, want: false},
		{name: "自依赖", nodes: []Node{n("A", "A")}, want: true},
		{name: "互相依赖", nodes: []Node{n("A", "B"), n("B", "A")}, want: true},
		{name: "线性链", nodes: []Node{n("A", "B"), n("B", "C"), n("C")}, want: false},
		{name: "菱形", nodes: []Node{n("A", "B", "C"), n("B", "D"), n("C", "D"), n("D")}, want: false},
		{name: "三节点环", nodes: []Node{n("A", "B"), n("B", "C"), n("C", "A")}, want: true},
		{name: "悬空依赖不构成环", nodes: []Node{n("A", "X"), n("B", "X")}, want: false},
		{name: "环位于后续连通分量", nodes: []Node{n("A"), n("B", "C"), n("C", "D"), n("D", "C")}, want: true},
		{name: "共享目标后出现环", nodes: []Node{n("A", "C"), n("B", "C"), n("C", "B")}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HasCircularDependencies(tt.nodes))
		})
	}
}

func TestPredicates_与输入顺序无关(t *testing.T) {
	graphs := [][]Node{
		{n("A", "B", "C"), n("B", "D"), n("C", "D"), n("D")},
		{n("A", "B"), n("B", "C"), n("C", "A"), n("E")},
		{n("A", "X"), n("B", "A"), n("C")},
	}

	for gi, nodes := range graphs {
		wantValid := ValidateDependencies(nodes)
		wantCycle := HasCircularDependencies(nodes)
		for _, perm := range permutations(nodes) {
			assert.Equal(t, wantValid, ValidateDependencies(perm), "graph %d perm %v", gi, ids(perm))
			assert.Equal(t, wantCycle, HasCircularDependencies(perm), "graph %d perm %v", gi, ids(perm))
		}
	}
}

func TestPredicatesDoNotMutateInput(t *testing.T) {
	nodes := []Node{n("A", "B"), n("B", "A"), n("C", "Z")}
	before := fmt.Sprintf("%v", nodes)

	ValidateDependencies(nodes)
	HasCircularDependencies(nodes)
	FindCycle(nodes)
	DanglingReferences(nodes)

	assert.Equal(t, before, fmt.Sprintf("%v", nodes))
}

func TestFindCycle(t *testing.T) {
	assert.Nil(t, FindCycle([]Node{n("A", "B"), n("B")}))
	assert.Equal(t, []string{"A", "A"}, FindCycle([]Node{n("A", "A")}))
	assert.Equal(t, []string{"A", "B", "C", "A"}, FindCycle([]Node{n("A", "B"), n("B", "C"), n("C", "A")}))
	// 环不包含起始节点时只返回环本身
	assert.Equal(t, []string{"B", "C", "B"}, FindCycle([]Node{n("A", "B"), n("B", "C"), n("C", "B")}))
}

func TestFindCycle_DeepChainDoesNotRecurse(t *testing.T) {
	const depth = 200000
	nodes := make([]Node, depth)
	for i := 0; i < depth; i++ {
		if i == depth-1 {
			nodes[i] = n(fmt.Sprintf("p%d", i))
			continue
		}
		nodes[i] = n(fmt.Sprintf("p%d", i), fmt.Sprintf("p%d", i+1))
	}
	assert.False(t, HasCircularDependencies(nodes))

	nodes[depth-1] = n(fmt.Sprintf("p%d", depth-1), "p0")
	assert.True(t, HasCircularDependencies(nodes))
}

func TestDanglingReferences(t *testing.T) {
	refs := DanglingReferences([]Node{n("A", "X", "B"), n("B", "Y")})
	require.Len(t, refs, 2)
	assert.Equal(t, DanglingReference{NodeID: "A", Dependency: "X"}, refs[0])
	assert.Equal(t, DanglingReference{NodeID: "B", Dependency: "Y"}, refs[1])

	assert.Empty(t, DanglingReferences([]Node{n("A", "B"), n("B")}))
}

// 重复ID：以首次出现为准展开依赖，后续出现的依赖仍参与存在性校验
func TestDuplicateIDs(t *testing.T) {
	nodes := []Node{n("A"), n("B", "A"), n("A", "B"), n("B"), n("A")}

	assert.Equal(t, []string{"A", "B"}, DuplicateIDs(nodes))
	assert.True(t, ValidateDependencies(nodes))
	// 第二个A声明了对B的依赖，但遍历只展开首次出现的A，因此不构成环
	assert.False(t, HasCircularDependencies(nodes))

	assert.False(t, ValidateDependencies([]Node{n("A"), n("A", "Z")}))
}

func ids(nodes []Node) []string {
	out := make([]string, len(nodes))
	for i, node := range nodes {
		out[i] = node.ID
	}
	return out
}

func permutations(nodes []Node) [][]Node {
	if len(nodes) <= 1 {
		return [][]Node{append([]Node(nil), nodes...)}
	}
	var result [][]Node
	for i := range nodes {
		rest := make([]Node, 0, len(nodes)-1)
		rest = append(rest, nodes[:i]...)
		rest = append(rest, nodes[i+1:]...)
		for _, p := range permutations(rest) {
			result = append(result, append([]Node{nodes[i]}, p...))
		}
	}
	return result
}
