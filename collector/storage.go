package collector

import "politefetch/batch"

// Storager 结果落库能力，批量写入由实现自己缓冲
type Storager interface {
	Save(results ...batch.ResultRecord) error
	// Flush 把缓冲里的结果全部写出去
	Flush() error
}
