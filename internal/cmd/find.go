package cmd

import (
	"fmt"
	"strings"

	"github.com/Linaro/lite-cornea/internal/iris"
)

// findInstance resolves an instance by name, first exactly, then with the
// platform prefix stripped: simulator instance names all share a long
// hierarchical prefix (the platform component path), so "cluster0.cpu0"
// matches "component.Platform.cluster0.cpu0".
func findInstance(client *iris.Client, name string) (iris.Instance, error) {
	if inst, err := client.InstanceByName(name); err == nil {
		return inst, nil
	}
	want := strings.TrimPrefix(name, ".")
	instances, err := client.Instances("component")
	if err != nil {
		return iris.Instance{}, err
	}
	names := make([]string, 0, len(instances))
	for _, inst := range instances {
		names = append(names, inst.Name)
	}
	prefix := commonPrefixLen(names)
	for _, inst := range instances {
		if strings.TrimPrefix(inst.Name[prefix:], ".") == want {
			return inst, nil
		}
	}
	return iris.Instance{}, fmt.Errorf("instance not found")
}

// commonPrefixLen is the length of the longest byte prefix shared by every
// name in the list.
func commonPrefixLen(names []string) int {
	if len(names) == 0 {
		return 0
	}
	first := names[0]
	shortest := len(first)
	for _, name := range names[1:] {
		n := mismatch(name, first)
		if n < shortest {
			shortest = n
		}
	}
	return shortest
}

// mismatch is the index of the first byte where a and b differ.
func mismatch(a, b string) int {
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}
