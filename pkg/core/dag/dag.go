package dag

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"sort"

	godag "github.com/begmaroman/go-dag"
)

var (
	// ErrCircularDependency 存在循环依赖
	ErrCircularDependency = errors.New("检测到循环依赖")
	// ErrDanglingDependency 存在悬空依赖
	ErrDanglingDependency = errors.New("依赖的节点不存在")
)

// TopologicalSort 执行拓扑排序（对外导出）
// 使用Kahn算法按层输出，被依赖的节点在前；悬空依赖被忽略，层内顺序与输入顺序一致
func TopologicalSort[V Vertex](nodes []V) (*TopologicalOrder, error) {
	index := indexByID(nodes)
	position := make(map[string]int, len(index))
	order := make([]string, 0, len(index))
	for _, node := range nodes {
		if _, exists := position[node.GetID()]; !exists {
			position[node.GetID()] = len(order)
			order = append(order, node.GetID())
		}
	}

	// 1. 计算入度（同一依赖重复声明只计一次）
	inDegree := make(map[string]int, len(order))
	dependents := make(map[string][]string, len(order))
	for _, id := range order {
		seen := make(map[string]bool)
		for _, dep := range index[id].GetDependencies() {
			if _, ok := index[dep]; !ok || seen[dep] {
				continue
			}
			seen[dep] = true
			inDegree[id]++
			dependents[dep] = append(dependents[dep], id)
		}
	}

	// 2. 入度为0的节点构成第一层
	queue := make([]string, 0)
	for _, id := range order {
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}

	// 3. 逐层移除节点并更新下游入度
	result := &TopologicalOrder{Levels: make([][]string, 0)}
	processed := 0
	for len(queue) > 0 {
		result.Levels = append(result.Levels, queue)
		processed += len(queue)

		next := make([]string, 0)
		for _, id := range queue {
			for _, child := range dependents[id] {
				inDegree[child]--
				if inDegree[child] == 0 {
					next = append(next, child)
				}
			}
		}
		sort.Slice(next, func(i, j int) bool { return position[next[i]] < position[next[j]] })
		queue = next
	}

	// 4. 仍有节点未处理说明存在环
	if processed < len(order) {
		return nil, fmt.Errorf("%w: %v", ErrCircularDependency, FindCycle(nodes))
	}
	return result, nil
}

// graphVertex go-dag中保存的顶点
type graphVertex struct {
	id   string
	deps []string
}

// ID 实现go-dag的Identifiable接口
func (v *graphVertex) ID() string {
	return v.id
}

// hashGraphVertex 按节点ID计算顶点哈希
// go-dag默认对顶点做JSON序列化后取哈希，graphVertex没有导出字段，所有顶点会得到相同的哈希
func hashGraphVertex(v *graphVertex) godag.VHash {
	return sha256.Sum256([]byte(v.id))
}

// Graph 已校验的依赖图（对外导出）
// 边的方向为 依赖 -> 依赖方，与拓扑顺序一致
type Graph struct {
	d   *godag.DAG[*graphVertex]
	ids []string
}

// BuildDAG 从节点集合构建依赖图（对外导出）
// 先一次性完成悬空依赖、重复ID和环检测，再把节点和边写入go-dag，避免逐条AddEdge时的递归检查
func BuildDAG[V Vertex](nodes []V) (*Graph, error) {
	if dups := DuplicateIDs(nodes); len(dups) > 0 {
		return nil, fmt.Errorf("存在重复的节点ID: %v", dups)
	}
	if dangling := DanglingReferences(nodes); len(dangling) > 0 {
		return nil, fmt.Errorf("%w: %s -> %s", ErrDanglingDependency, dangling[0].NodeID, dangling[0].Dependency)
	}
	if cycle := FindCycle(nodes); cycle != nil {
		return nil, fmt.Errorf("%w: %v", ErrCircularDependency, cycle)
	}

	d := godag.NewDAG[*graphVertex]()
	d.Options(godag.Options[*graphVertex]{VertexHashFunc: hashGraphVertex})
	ids := make([]string, 0, len(nodes))
	for _, node := range nodes {
		v := &graphVertex{id: node.GetID(), deps: node.GetDependencies()}
		if err := d.AddVertexByID(v.id, v); err != nil {
			return nil, fmt.Errorf("添加节点失败: ID=%s, Error=%w", v.id, err)
		}
		ids = append(ids, v.id)
	}
	for _, node := range nodes {
		seen := make(map[string]bool)
		for _, dep := range node.GetDependencies() {
			if seen[dep] {
				continue
			}
			seen[dep] = true
			if err := d.AddEdge(dep, node.GetID()); err != nil {
				return nil, fmt.Errorf("添加边失败: %s -> %s, Error=%w", dep, node.GetID(), err)
			}
		}
	}
	return &Graph{d: d, ids: ids}, nil
}

// IDs 按输入顺序返回所有节点ID
func (g *Graph) IDs() []string {
	return append([]string(nil), g.ids...)
}

// Order 返回节点数量
func (g *Graph) Order() int {
	return g.d.GetOrder()
}

// Dependencies 返回节点直接依赖的节点ID（已排序）
func (g *Graph) Dependencies(id string) ([]string, error) {
	parents, err := g.d.GetParents(id)
	if err != nil {
		return nil, err
	}
	return sortedKeys(parents), nil
}

// Dependents 返回直接依赖该节点的节点ID（已排序）
func (g *Graph) Dependents(id string) ([]string, error) {
	children, err := g.d.GetChildren(id)
	if err != nil {
		return nil, err
	}
	return sortedKeys(children), nil
}

// Roots 返回没有任何依赖的节点ID（已排序）
func (g *Graph) Roots() []string {
	return sortedKeys(g.d.GetRoots())
}

// Has 判断节点是否存在
func (g *Graph) Has(id string) bool {
	_, err := g.d.GetVertex(id)
	return err == nil
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
