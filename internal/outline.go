package internal

import "context"

// OutlineFeed turns every change of the tree into an outline. The returned broadcast closes
// when ctx is done or the tree closes.
func (r *Runtime) OutlineFeed(ctx context.Context, tree *Tree, cfg TrailConfig) (*Broadcast[Outline], error) {
	sub, err := tree.Subscribe(SeedLatest)
	if err != nil {
		return nil, err
	}

	feed := NewBroadcast[Outline]("outline", r.metrics)

	go func() {
		defer feed.Close()
		defer sub.Close()

		for {
			select {
			case <-ctx.Done():
				return
			case snap, ok := <-sub.C():
				if !ok {
					return
				}

				trail, err := r.Synthesize(snap, cfg)
				if err != nil {
					r.logger.Error("cannot synthesize trail", "tree", tree.Root(), "error", err)
					continue
				}
				if err := feed.Publish(Outline{Trail: &trail}); err != nil {
					return
				}
			}
		}
	}()

	return feed, nil
}
