package constants

// Redis Key 前缀和格式常量
// 使用统一的命名规范: app:{module}:{entity}:{unique_id}
const (
	// AppPrefix 是所有Redis Key的统一应用前缀
	AppPrefix = "app"

	// JobModulePrefix 职位模块
	JobModulePrefix = "job"
	// FileModulePrefix 文件模块
	FileModulePrefix = "file"

	// EntityKeywords 职位关键词实体
	EntityKeywords = "keywords"
	// EntityLock 分布式锁实体
	EntityLock = "lock"
	// EntityDedupSet 去重集合实体
	EntityDedupSet = "dedup_set"
	// EntityMD5ToApp MD5到申请ID的映射实体
	EntityMD5ToApp = "md5_to_app"

	// KeyJobKeywords 职位有效关键词缓存 (STRING, JSON数组)
	// 格式: app:job:keywords:{jobID}
	KeyJobKeywords = AppPrefix + ":" + JobModulePrefix + ":" + EntityKeywords + ":%s"

	// KeyJobRescoreLock 职位重评分布式锁 (STRING)
	// 格式: app:job:lock:rescore:{jobID}
	KeyJobRescoreLock = AppPrefix + ":" + JobModulePrefix + ":" + EntityLock + ":rescore:%s"

	// KeyFileMD5Set 简历文件MD5集合，用于快速去重 (SET)
	// 格式: app:file:dedup_set
	KeyFileMD5Set = AppPrefix + ":" + FileModulePrefix + ":" + EntityDedupSet

	// KeyFileMD5ToApplication MD5到申请UUID的映射 (STRING)
	// 格式: app:file:md5_to_app:{md5}
	KeyFileMD5ToApplication = AppPrefix + ":" + FileModulePrefix + ":" + EntityMD5ToApp + ":%s"
)
