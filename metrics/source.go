// Copyright 2025 Tao Wang <wangtaoking1@qq.com>. All rights reserved.
// Use of this source code is governed by a MIT style
// license that can be found in the LICENSE file.

package metrics

import "github.com/wangtaoking1/watchwah-agent/websocket"

// StatsFunc adapts a function to StatsSource.
type StatsFunc func() websocket.Stats

func (f StatsFunc) Stats() websocket.Stats {
	return f()
}
