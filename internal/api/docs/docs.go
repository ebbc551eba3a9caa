// Package docs 只读查询 API 的 Swagger 文档
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/packets": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "description": "按终端号、协议名、时间范围分页查询原始数据包",
                "produces": ["application/json"],
                "tags": ["数据包"],
                "summary": "查询数据包",
                "parameters": [
                    {"type": "integer", "description": "页码(默认1)", "name": "page", "in": "query"},
                    {"type": "integer", "description": "每页数量(默认50,最大1000)", "name": "limit", "in": "query"},
                    {"type": "string", "description": "终端号", "name": "terminalId", "in": "query"},
                    {"type": "string", "description": "协议名称，如 GPS_LBS_STATUS", "name": "protocolName", "in": "query"},
                    {"type": "string", "description": "开始时间(RFC3339 或 2006-01-02)", "name": "startDate", "in": "query"},
                    {"type": "string", "description": "结束时间(RFC3339 或 2006-01-02)", "name": "endDate", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "成功", "schema": {"type": "object", "additionalProperties": true}},
                    "400": {"description": "参数错误", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/api/packets/{id}": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "description": "返回数据包及 GPS/LBS/状态/报警/WiFi 明细",
                "produces": ["application/json"],
                "tags": ["数据包"],
                "summary": "查询数据包详情",
                "parameters": [
                    {"type": "integer", "description": "数据包ID", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "成功", "schema": {"type": "object", "additionalProperties": true}},
                    "404": {"description": "不存在", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/api/gps": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["定位"],
                "summary": "查询定位点",
                "parameters": [
                    {"type": "string", "description": "终端号", "name": "terminalId", "in": "query"},
                    {"type": "string", "description": "开始时间", "name": "startDate", "in": "query"},
                    {"type": "string", "description": "结束时间", "name": "endDate", "in": "query"},
                    {"type": "integer", "description": "数量(默认50,最大1000)", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "成功", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/api/gps/geojson": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["定位"],
                "summary": "定位轨迹 GeoJSON",
                "parameters": [
                    {"type": "string", "description": "终端号", "name": "terminalId", "in": "query"},
                    {"type": "string", "description": "开始时间", "name": "startDate", "in": "query"},
                    {"type": "string", "description": "结束时间", "name": "endDate", "in": "query"},
                    {"type": "integer", "description": "数量(默认50,最大1000)", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "成功", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/api/alarms": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["报警"],
                "summary": "查询报警",
                "parameters": [
                    {"type": "string", "description": "终端号", "name": "terminalId", "in": "query"},
                    {"type": "string", "description": "开始时间", "name": "startDate", "in": "query"},
                    {"type": "string", "description": "结束时间", "name": "endDate", "in": "query"},
                    {"type": "integer", "description": "数量(默认50,最大1000)", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "成功", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/api/devices": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "description": "按终端汇总数据包数量与首末上报时间，附带在线状态",
                "produces": ["application/json"],
                "tags": ["设备"],
                "summary": "查询设备列表",
                "responses": {
                    "200": {"description": "成功", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/api/devices/{terminalId}/latest": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "description": "优先读取 Redis 位置缓存，缓存缺失时回退到数据库",
                "produces": ["application/json"],
                "tags": ["设备"],
                "summary": "终端最新位置",
                "parameters": [
                    {"type": "string", "description": "终端号", "name": "terminalId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "成功", "schema": {"type": "object", "additionalProperties": true}},
                    "404": {"description": "无定位数据", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/api/sessions": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "produces": ["application/json"],
                "tags": ["设备"],
                "summary": "查询设备会话",
                "parameters": [
                    {"type": "string", "description": "终端号", "name": "terminalId", "in": "query"},
                    {"type": "string", "description": "active 或 closed", "name": "status", "in": "query"},
                    {"type": "integer", "description": "页码", "name": "page", "in": "query"},
                    {"type": "integer", "description": "每页数量", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "成功", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        },
        "/api/export/{format}": {
            "get": {
                "security": [{"ApiKeyAuth": []}],
                "description": "按条件导出数据包（含定位与基站），gzip=1 时以 gzip 压缩输出",
                "produces": ["application/json", "text/csv"],
                "tags": ["导出"],
                "summary": "导出数据包",
                "parameters": [
                    {"type": "string", "description": "json 或 csv", "name": "format", "in": "path", "required": true},
                    {"type": "string", "description": "终端号", "name": "terminalId", "in": "query"},
                    {"type": "string", "description": "协议名称", "name": "protocolName", "in": "query"},
                    {"type": "string", "description": "开始时间", "name": "startDate", "in": "query"},
                    {"type": "string", "description": "结束时间", "name": "endDate", "in": "query"},
                    {"type": "boolean", "description": "是否压缩", "name": "gzip", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "导出文件", "schema": {"type": "file"}},
                    "400": {"description": "参数错误", "schema": {"type": "object", "additionalProperties": true}}
                }
            }
        }
    },
    "securityDefinitions": {
        "ApiKeyAuth": {
            "type": "apiKey",
            "name": "X-API-Key",
            "in": "header"
        }
    }
}`

// SwaggerInfo 文档元信息，可在启动时修改 Host 等字段
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "GT06 Gateway API",
	Description:      "GT06 终端数据只读查询与导出接口",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
