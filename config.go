package fswatch

import (
	"os"
	"strings"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// PollMonitor 是 fswatch 轮询后端的名字
const PollMonitor = "poll_monitor"

// Config 描述一次监控的参数
//
// Paths：监控路径，允许重复
// Ignore：忽略路径的正则表达式，同时作为 -e 传给 fswatch
// Polling：使用 poll_monitor 后端
// OneShot：收到第一批事件后结束
type Config struct {
	Paths   []string `yaml:"paths"`
	Ignore  []string `yaml:"ignore"`
	Polling bool     `yaml:"polling"`
	OneShot bool     `yaml:"one_shot"`
}

func (c Config) clone() Config {
	out := c
	out.Paths = append([]string(nil), c.Paths...)
	out.Ignore = append([]string(nil), c.Ignore...)
	return out
}

// Args 生成 fswatch 的参数(不含可执行文件名)
//
//	-xrn [-e <pattern>]... [-1] [--monitor=poll_monitor] <paths>...
func Args(cfg Config) []string {
	args := []string{"-xrn"}
	for _, p := range cfg.Ignore {
		args = append(args, "-e", p)
	}
	if cfg.OneShot {
		args = append(args, "-1")
	}
	if cfg.Polling {
		args = append(args, "--monitor="+PollMonitor)
	}
	return append(args, cfg.Paths...)
}

// ParseBackends 解析 --list-monitors 的输出
//
// 单行和多行输出等价，每行去除首尾空白，空行忽略
func ParseBackends(output string) []string {
	var out []string
	for _, line := range strings.Split(output, "\n") {
		if name := strings.TrimSpace(line); name != "" {
			out = append(out, name)
		}
	}
	return out
}

// LoadConfig 从 YAML 文件读取配置
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrap(err, "failed to read config")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrapf(err, "failed to parse config %s", path)
	}
	return cfg, nil
}
