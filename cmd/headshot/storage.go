package main

import (
	"context"
	"fmt"

	"github.com/shouni/go-remote-io/pkg/gcsfactory"
	"github.com/shouni/go-remote-io/pkg/remoteio"
	"github.com/shouni/go-remote-io/pkg/s3factory"
)

// ioFactoryFunc は gs:// や s3:// の URI に対応する remoteio.IOFactory を作ります。
type ioFactoryFunc func(ctx context.Context, uri string) (remoteio.IOFactory, error)

func newIOFactory(ctx context.Context, uri string) (remoteio.IOFactory, error) {
	switch {
	case remoteio.IsGCSURI(uri):
		return gcsfactory.New(ctx)
	case remoteio.IsS3URI(uri):
		return s3factory.New(ctx)
	default:
		return nil, fmt.Errorf("未対応のURIです: %s", uri)
	}
}

// storage は入出力先ごとの IOFactory を必要になった時だけ作り、まとめて閉じます。
type storage struct {
	newIO     ioFactoryFunc
	factories []remoteio.IOFactory
}

func (s *storage) factory(ctx context.Context, uri string) (remoteio.IOFactory, error) {
	f, err := s.newIO(ctx, uri)
	if err != nil {
		return nil, fmt.Errorf("ストレージクライアントの初期化に失敗しました: %w", err)
	}
	s.factories = append(s.factories, f)
	return f, nil
}

// reader は uri がリモートなら対応する InputReader を、ローカルなら nil を返します。
func (s *storage) reader(ctx context.Context, uri string) (remoteio.InputReader, error) {
	if !remoteio.IsRemoteURI(uri) {
		return nil, nil
	}
	f, err := s.factory(ctx, uri)
	if err != nil {
		return nil, err
	}
	return f.InputReader()
}

// writer は uri の書き込み先に合わせた OutputWriter を返します。
func (s *storage) writer(ctx context.Context, uri string) (remoteio.OutputWriter, error) {
	if !remoteio.IsRemoteURI(uri) {
		return remoteio.NewUniversalIOWriter(nil, nil), nil
	}
	f, err := s.factory(ctx, uri)
	if err != nil {
		return nil, err
	}
	return f.OutputWriter()
}

func (s *storage) Close() {
	for _, f := range s.factories {
		_ = f.Close()
	}
}
