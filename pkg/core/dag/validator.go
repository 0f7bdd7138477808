package dag

// ValidateDependencies 校验所有依赖是否都指向输入集合中存在的节点（对外导出）
// 没有依赖（或依赖为空）的节点天然满足校验；重复ID的每一次出现都会参与校验
func ValidateDependencies[V Vertex](nodes []V) bool {
	ids := idSet(nodes)
	for _, node := range nodes {
		for _, dep := range node.GetDependencies() {
			if !ids[dep] {
				return false
			}
		}
	}
	return true
}

// DanglingReferences 返回所有悬空依赖，按输入顺序排列（对外导出）
func DanglingReferences[V Vertex](nodes []V) []DanglingReference {
	ids := idSet(nodes)
	var result []DanglingReference
	for _, node := range nodes {
		for _, dep := range node.GetDependencies() {
			if !ids[dep] {
				result = append(result, DanglingReference{NodeID: node.GetID(), Dependency: dep})
			}
		}
	}
	return result
}

// DuplicateIDs 返回出现多次的节点ID，按首次出现顺序排列（对外导出）
// 校验函数本身不拒绝重复ID，是否拒绝由调用方决定
func DuplicateIDs[V Vertex](nodes []V) []string {
	seen := make(map[string]int, len(nodes))
	var result []string
	for _, node := range nodes {
		id := node.GetID()
		seen[id]++
		if seen[id] == 2 {
			result = append(result, id)
		}
	}
	return result
}

// HasCircularDependencies 检测依赖关系中是否存在环（对外导出）
// 悬空依赖视为死路，不会单独构成环；节点依赖自身也是环
func HasCircularDependencies[V Vertex](nodes []V) bool {
	return FindCycle(nodes) != nil
}

// FindCycle 返回找到的第一个环（首尾相同的闭合路径），无环时返回nil（对外导出）
// 路径方向与依赖方向一致：[a, b, a] 表示 a 依赖 b，b 依赖 a
func FindCycle[V Vertex](nodes []V) []string {
	index := indexByID(nodes)
	visited := make(map[string]bool, len(index))

	for _, start := range nodes {
		if visited[start.GetID()] {
			continue
		}
		if cycle := walk(start.GetID(), index, visited); cycle != nil {
			return cycle
		}
	}
	return nil
}

// frame 显式DFS栈帧
type frame struct {
	id   string
	deps []string
	next int // 下一个待处理的依赖下标
}

// walk 从root开始做迭代DFS
// visited在多次调用间共享；onPath只记录当前路径，节点出栈时移除
func walk[V Vertex](root string, index map[string]V, visited map[string]bool) []string {
	onPath := map[string]bool{root: true}
	visited[root] = true
	stack := []frame{{id: root, deps: index[root].GetDependencies()}}

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next >= len(top.deps) {
			delete(onPath, top.id)
			stack = stack[:len(stack)-1]
			continue
		}

		dep := top.deps[top.next]
		top.next++

		if onPath[dep] {
			return cyclePath(stack, dep)
		}
		if visited[dep] {
			// 已完整展开且无环
			continue
		}
		visited[dep] = true

		next, ok := index[dep]
		if !ok {
			// 悬空依赖，不再展开
			continue
		}
		onPath[dep] = true
		stack = append(stack, frame{id: dep, deps: next.GetDependencies()})
	}
	return nil
}

// cyclePath 从栈中截取环路径
func cyclePath(stack []frame, closing string) []string {
	start := 0
	for i := range stack {
		if stack[i].id == closing {
			start = i
			break
		}
	}
	path := make([]string, 0, len(stack)-start+1)
	for _, f := range stack[start:] {
		path = append(path, f.id)
	}
	return append(path, closing)
}

// idSet 构建节点ID集合
func idSet[V Vertex](nodes []V) map[string]bool {
	ids := make(map[string]bool, len(nodes))
	for _, node := range nodes {
		ids[node.GetID()] = true
	}
	return ids
}

// indexByID 构建ID到节点的索引，重复ID以首次出现为准
func indexByID[V Vertex](nodes []V) map[string]V {
	index := make(map[string]V, len(nodes))
	for _, node := range nodes {
		if _, exists := index[node.GetID()]; !exists {
			index[node.GetID()] = node
		}
	}
	return index
}
