package internal

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootPath(t *testing.T) {
	t.Run("outside any task", func(t *testing.T) {
		r := NewRuntime()

		_, err := r.RootPath()
		assert.ErrorIs(t, err, ErrNoTask)

		_, err = r.Plant()
		assert.ErrorIs(t, err, ErrNoTask)
	})

	t.Run("nested runs", func(t *testing.T) {
		r := NewRuntime()

		err := r.Run("root", func() error {
			return r.Run("child", func() error {
				path, err := r.RootPath()
				require.NoError(t, err)
				require.Len(t, path, 2)
				assert.Equal(t, "child", path[0].Name)
				assert.Equal(t, "root", path[1].Name)
				assert.Equal(t, path[1].ID, path[0].ParentID)
				return nil
			})
		})
		require.NoError(t, err)
	})

	t.Run("group children", func(t *testing.T) {
		r := NewRuntime()

		err := r.Run("root", func() error {
			g, ctx, err := r.Group(context.Background())
			require.NoError(t, err)

			g.Go("worker", func(context.Context) error {
				path, err := r.RootPath()
				if err != nil {
					return err
				}
				assert.Equal(t, []string{"worker", "root"}, []string{path[0].Name, path[1].Name})
				return nil
			})
			require.NoError(t, ctx.Err())
			return g.Wait()
		})
		require.NoError(t, err)
	})

	t.Run("broken task graph", func(t *testing.T) {
		reg := &staticRegistry{live: []Task{rootTask, leafTask}}
		reg.become(leafTask)
		r := NewRuntime(WithRegistry(reg))

		_, err := r.RootPath()
		assert.ErrorIs(t, err, ErrBrokenTaskGraph)
	})

	t.Run("cycle", func(t *testing.T) {
		a := Task{ID: 10, Name: "a", ParentID: 11}
		b := Task{ID: 11, Name: "b", ParentID: 10}
		reg := &staticRegistry{live: []Task{a, b}}
		reg.become(a)
		r := NewRuntime(WithRegistry(reg))

		_, err := r.RootPath()
		assert.ErrorIs(t, err, ErrBrokenTaskGraph)
	})

	t.Run("no tree", func(t *testing.T) {
		r := NewRuntime()

		err := r.Run("root", func() error {
			_, _, err := r.AddRootPath()
			return err
		})
		assert.ErrorIs(t, err, ErrNoTaskTree)
	})

	t.Run("custom registry cannot spawn", func(t *testing.T) {
		r := NewRuntime(WithRegistry(&staticRegistry{}))

		assert.ErrorIs(t, r.Run("root", func() error { return nil }), ErrNoScheduler)
		_, _, err := r.Group(context.Background())
		assert.ErrorIs(t, err, ErrNoScheduler)
	})
}

func TestAddRootPath(t *testing.T) {
	t.Run("membership on first use", func(t *testing.T) {
		r := NewRuntime()

		planted(t, r, func(tree *Tree) {
			err := r.Run("child", func() error {
				return r.Run("leaf", func() error {
					_, path, err := r.AddRootPath()
					if err != nil {
						return err
					}
					assert.Equal(t, []string{"root", "child", "leaf"}, names(path))
					return nil
				})
			})
			require.NoError(t, err)

			snap := tree.Snapshot()
			require.NoError(t, snap.Validate())
			assert.Equal(t, 3, snap.Len())
		})
	})

	t.Run("innermost tree wins", func(t *testing.T) {
		r := NewRuntime()

		planted(t, r, func(outer *Tree) {
			err := r.Run("child", func() error {
				return r.Planted(func(inner *Tree) error {
					return r.Run("leaf", func() error {
						tree, path, err := r.AddRootPath()
						if err != nil {
							return err
						}
						assert.Same(t, inner, tree)
						assert.Equal(t, []string{"child", "leaf"}, names(path))
						return nil
					})
				})
			})
			require.NoError(t, err)
			assert.Equal(t, 1, outer.Snapshot().Len())
		})
	})

	t.Run("planting twice", func(t *testing.T) {
		r := NewRuntime()

		planted(t, r, func(*Tree) {
			_, err := r.Plant()
			assert.ErrorIs(t, err, ErrAlreadyPlanted)
		})
	})
}

func TestInstances(t *testing.T) {
	greeting := NewKey("greeting")

	t.Run("nearest wins", func(t *testing.T) {
		r := NewRuntime()

		planted(t, r, func(*Tree) {
			require.NoError(t, r.SetInstance(greeting, "hello from root"))

			err := r.Run("child", func() error {
				v, err := r.FirstInstance(greeting)
				require.NoError(t, err)
				assert.Equal(t, "hello from root", v)

				require.NoError(t, r.SetInstance(greeting, "hello from child"))

				return r.Run("leaf", func() error {
					v, err := r.FirstInstance(greeting)
					require.NoError(t, err)
					assert.Equal(t, "hello from child", v)

					all, err := r.AllInstances(greeting)
					require.NoError(t, err)
					assert.Equal(t, []any{"hello from child", "hello from root"}, all)
					return nil
				})
			})
			require.NoError(t, err)

			v, err := r.FirstInstance(greeting)
			require.NoError(t, err)
			assert.Equal(t, "hello from root", v)
		})
	})

	t.Run("not found", func(t *testing.T) {
		r := NewRuntime()

		planted(t, r, func(*Tree) {
			_, err := r.FirstInstance(greeting)
			assert.ErrorIs(t, err, ErrNotFound)

			all, err := r.AllInstances(greeting)
			require.NoError(t, err)
			assert.Empty(t, all)
		})
	})

	t.Run("siblings do not see each other", func(t *testing.T) {
		r := NewRuntime()

		planted(t, r, func(*Tree) {
			g, _, err := r.Group(context.Background())
			require.NoError(t, err)

			g.Go("a", func(context.Context) error {
				return r.SetInstance(greeting, "a")
			})
			require.NoError(t, g.Wait())

			err = r.Run("b", func() error {
				_, err := r.FirstInstance(greeting)
				return err
			})
			assert.ErrorIs(t, err, ErrNotFound)
		})
	})

	t.Run("own instance and delete", func(t *testing.T) {
		r := NewRuntime()

		planted(t, r, func(*Tree) {
			require.NoError(t, r.SetInstance(greeting, "root"))

			err := r.Run("child", func() error {
				_, ok, err := r.OwnInstance(greeting)
				require.NoError(t, err)
				assert.False(t, ok)

				require.NoError(t, r.SetInstance(greeting, "child"))
				v, ok, err := r.OwnInstance(greeting)
				require.NoError(t, err)
				assert.True(t, ok)
				assert.Equal(t, "child", v)

				require.NoError(t, r.DeleteInstance(greeting))
				v, err = r.FirstInstance(greeting)
				require.NoError(t, err)
				assert.Equal(t, "root", v)
				return nil
			})
			require.NoError(t, err)
		})
	})

	t.Run("keys are distinct", func(t *testing.T) {
		a, b := NewKey("same"), NewKey("same")
		assert.NotEqual(t, a.ID(), b.ID())
		assert.Equal(t, "same", a.String())
	})
}

func names(tasks []Task) []string {
	out := make([]string, len(tasks))
	for i, task := range tasks {
		out[i] = task.Name
	}
	return out
}
