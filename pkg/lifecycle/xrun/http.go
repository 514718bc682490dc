package xrun

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"
)

// HTTPServerInterface 是 HTTPServer 需要的服务器方法，*http.Server 满足它。
type HTTPServerInterface interface {
	Serve(l net.Listener) error
	Shutdown(ctx context.Context) error
}

// HTTPServer 把服务器包装为服务函数：在 l 上提供服务，ctx 取消后优雅关闭。
//
// shutdownTimeout <= 0 表示等待所有在途请求完成。
// 由调用方创建监听器，便于使用 ":0" 并在启动前得到实际地址。
func HTTPServer(server HTTPServerInterface, l net.Listener, shutdownTimeout time.Duration) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if server == nil || l == nil {
			return ErrNilServer
		}
		shutdownErr := make(chan error, 1)
		serveDone := make(chan struct{})

		go func() {
			select {
			case <-ctx.Done():
				sctx := context.Background()
				if shutdownTimeout > 0 {
					var cancel context.CancelFunc
					sctx, cancel = context.WithTimeout(sctx, shutdownTimeout)
					defer cancel()
				}
				shutdownErr <- server.Shutdown(sctx)
			case <-serveDone:
			}
		}()

		err := server.Serve(l)
		if !errors.Is(err, http.ErrServerClosed) {
			close(serveDone)
			return err
		}
		select {
		case err := <-shutdownErr:
			return err
		case <-ctx.Done():
			return <-shutdownErr
		default:
			// 服务器在别处被关闭
			close(serveDone)
			return nil
		}
	}
}
