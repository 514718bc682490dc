// Package xrun 基于 errgroup 管理进程内多个长期运行的服务。
//
// 任一服务返回错误、收到退出信号或父 ctx 取消时，其余服务都会收到取消通知，
// Run 等待全部服务返回后才结束：
//
//	l, _ := net.Listen("tcp", ":8080")
//	err := xrun.Run(ctx, []xrun.Option{xrun.WithLogger(logger)},
//	    xrun.HTTPServer(&http.Server{Handler: h}, l, 10*time.Second),
//	    func(ctx context.Context) error {
//	        w.StartAsync()
//	        <-ctx.Done()
//	        return w.Stop()
//	    },
//	)
//	if errors.Is(err, xrun.ErrSignal) {
//	    err = nil
//	}
package xrun
