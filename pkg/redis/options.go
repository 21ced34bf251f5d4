package redis

import (
	"github.com/hibiken/asynq"
)

// QueueOptions returns the connection the task queue shares with the rest of
// the process. asynq keeps its own client, so the parsed URL is copied field
// by field.
func (c *Config) QueueOptions() (asynq.RedisClientOpt, error) {
	opt, err := c.Options()
	if err != nil {
		return asynq.RedisClientOpt{}, err
	}

	return asynq.RedisClientOpt{
		Network:      opt.Network,
		Addr:         opt.Addr,
		Username:     opt.Username,
		Password:     opt.Password,
		DB:           opt.DB,
		DialTimeout:  opt.DialTimeout,
		ReadTimeout:  opt.ReadTimeout,
		WriteTimeout: opt.WriteTimeout,
		PoolSize:     opt.PoolSize,
		TLSConfig:    opt.TLSConfig,
	}, nil
}
