package snowflake

import (
	"errors"
	"sync"

	"github.com/bwmarrin/snowflake"
)

var (
	node *snowflake.Node
	once sync.Once

	errInvalidNodeID      = errors.New("snowflake machine/datacenter id must be in 0~31")
	errGeneratorUninitial = errors.New("snowflake generator is not initialized")
)

// Init 初始化进程级 ID 生成器，重复调用只生效一次。
func Init(machineID, dataCenterID int64) error {
	var initErr error

	once.Do(func() {
		if machineID < 0 || machineID > 31 || dataCenterID < 0 || dataCenterID > 31 {
			initErr = errInvalidNodeID
			return
		}

		// datacenterID 高 5 位，machineID 低 5 位
		var err error
		node, err = snowflake.NewNode((dataCenterID << 5) | machineID)
		if err != nil {
			initErr = err
		}
	})

	return initErr
}

func NextID() (int64, error) {
	if node == nil {
		return 0, errGeneratorUninitial
	}

	return node.Generate().Int64(), nil
}
