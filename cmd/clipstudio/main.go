// Package main 启动应用程序
package main

import "github.com/yeisme/clipstudio/pkg/cmd"

//	@title			ClipStudio API
//	@version		1.0
//	@description	ClipStudio 视频编辑器的素材上传、配额与项目编排服务。

//	@license.name	MIT
//	@license.url	https://opensource.org/license/mit/

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization

func main() {
	if err := cmd.Execute(); err != nil {
		panic(err)
	}
}
