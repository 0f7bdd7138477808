package dag

// Vertex 依赖图中的节点接口（对外导出）
// 任何带有字符串ID和有序依赖列表的记录都可以作为节点参与校验
type Vertex interface {
	// GetID 返回节点ID
	GetID() string
	// GetDependencies 返回该节点依赖的节点ID列表（nil视为空）
	GetDependencies() []string
}

// Node Vertex的基础实现（对外导出）
type Node struct {
	ID           string   `json:"id" yaml:"id"`                                         // 节点ID
	Dependencies []string `json:"dependencies,omitempty" yaml:"dependencies,omitempty"` // 依赖的节点ID列表
}

// GetID 实现Vertex接口
func (n Node) GetID() string {
	return n.ID
}

// GetDependencies 实现Vertex接口
func (n Node) GetDependencies() []string {
	return n.Dependencies
}

// DanglingReference 悬空依赖：依赖ID在输入集合中不存在（对外导出）
type DanglingReference struct {
	NodeID     string `json:"node_id"`    // 声明依赖的节点
	Dependency string `json:"dependency"` // 不存在的依赖ID
}

// TopologicalOrder 拓扑排序结果（对外导出）
type TopologicalOrder struct {
	Levels [][]string `json:"levels"` // 每一层的节点ID列表，层内节点互不依赖
}

// Flatten 按层展开为单一序列
func (o *TopologicalOrder) Flatten() []string {
	if o == nil {
		return nil
	}
	result := make([]string, 0)
	for _, level := range o.Levels {
		result = append(result, level...)
	}
	return result
}
